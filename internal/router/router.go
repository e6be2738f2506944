// Package router implements the four-level routing fallback chain: a
// structured-output call to the primary LLM (L0), a plain-text call to the
// same provider parsed as JSON (L1), a structured-output call to a distinct
// secondary provider (L2), and a deterministic keyword rule table (L3) that
// never calls an LLM and therefore never fails.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/forgeflow/orchestrator/internal/llm"
)

// Level identifies which fallback level produced a routing Decision.
type Level int

const (
	L0Structured Level = iota
	L1PlainJSON
	L2StructuredSecondary
	L3Keyword
)

func (l Level) String() string {
	switch l {
	case L0Structured:
		return "L0_structured_primary"
	case L1PlainJSON:
		return "L1_plain_json_primary"
	case L2StructuredSecondary:
		return "L2_structured_secondary"
	case L3Keyword:
		return "L3_keyword_rule"
	default:
		return "unknown"
	}
}

// Decision is the Router's routing choice for one turn.
type Decision struct {
	Agent      string
	Level      Level
	Confidence float64
}

// Candidate describes one routable agent to the LLM-backed levels.
type Candidate struct {
	Name        string
	Description string
}

// LevelCounter observes a fallback-level decision, for Prometheus counters.
// Implementations must be safe for concurrent use.
type LevelCounter interface {
	ObserveLevel(level Level, agent string)
}

// routeSchema is the structured-output schema every LLM-backed level asks
// the provider to conform to.
var routeSchema = json.RawMessage(`{
  "type": "object",
  "required": ["agent"],
  "properties": {
    "agent": {"type": "string"},
    "confidence": {"type": "number"}
  }
}`)

// Router evaluates the fallback chain for a single routing decision.
type Router struct {
	gateway  *llm.Gateway
	primary  string
	secondary string

	keywordRules map[string][]string
	patternCache sync.Map // pattern string -> *regexp.Regexp

	counter LevelCounter
}

// Config configures a Router.
type Config struct {
	Gateway           *llm.Gateway
	PrimaryProvider   string
	SecondaryProvider string
	KeywordRules      map[string][]string
	Counter           LevelCounter
}

// New builds a Router from cfg.
func New(cfg Config) *Router {
	return &Router{
		gateway:      cfg.Gateway,
		primary:      cfg.PrimaryProvider,
		secondary:    cfg.SecondaryProvider,
		keywordRules: cfg.KeywordRules,
		counter:      cfg.Counter,
	}
}

type routeOutput struct {
	Agent      string  `json:"agent"`
	Confidence float64 `json:"confidence"`
}

// Route picks the next agent for content, walking the fallback chain until
// one level succeeds. L3 always succeeds (it degrades to the first
// candidate if no keyword matches), so Route never returns an error.
func (r *Router) Route(ctx context.Context, content string, candidates []Candidate) Decision {
	if d, ok := r.tryStructured(ctx, r.primary, L0Structured, content, candidates); ok {
		r.observe(d)
		return d
	}
	if d, ok := r.tryPlainJSON(ctx, content, candidates); ok {
		r.observe(d)
		return d
	}
	if d, ok := r.tryStructured(ctx, r.secondary, L2StructuredSecondary, content, candidates); ok {
		r.observe(d)
		return d
	}
	d := r.keywordFallback(content, candidates)
	r.observe(d)
	return d
}

func (r *Router) observe(d Decision) {
	if r.counter != nil {
		r.counter.ObserveLevel(d.Level, d.Agent)
	}
}

func (r *Router) tryStructured(ctx context.Context, provider string, level Level, content string, candidates []Candidate) (Decision, bool) {
	if r.gateway == nil || provider == "" {
		return Decision{}, false
	}
	if _, ok := r.gateway.Provider(provider); !ok {
		return Decision{}, false
	}

	resp, err := r.gateway.Complete(ctx, provider, llm.Request{
		System:   routingSystemPrompt(candidates),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: content}},
		Mode:     llm.ModeStructured,
		Schema:   routeSchema,
	})
	if err != nil {
		return Decision{}, false
	}
	return decisionFromJSON(resp.Text, level, candidates)
}

func (r *Router) tryPlainJSON(ctx context.Context, content string, candidates []Candidate) (Decision, bool) {
	if r.gateway == nil || r.primary == "" {
		return Decision{}, false
	}
	if _, ok := r.gateway.Provider(r.primary); !ok {
		return Decision{}, false
	}

	resp, err := r.gateway.Complete(ctx, r.primary, llm.Request{
		System:   routingSystemPrompt(candidates) + "\nRespond with ONLY a JSON object, no prose.",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: content}},
		Mode:     llm.ModePlain,
	})
	if err != nil {
		return Decision{}, false
	}
	return decisionFromJSON(extractJSONObject(resp.Text), L1PlainJSON, candidates)
}

func decisionFromJSON(text string, level Level, candidates []Candidate) (Decision, bool) {
	var out routeOutput
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Decision{}, false
	}
	if !isCandidate(out.Agent, candidates) {
		return Decision{}, false
	}
	return Decision{Agent: out.Agent, Level: level, Confidence: out.Confidence}, true
}

func isCandidate(name string, candidates []Candidate) bool {
	for _, c := range candidates {
		if c.Name == name {
			return true
		}
	}
	return false
}

// extractJSONObject returns the first top-level {...} substring in text, for
// parsing L1 responses where the model may have wrapped JSON in prose
// despite being asked not to.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}

// keywordFallback is L3: a deterministic rule table keyed by agent name. It
// never calls an LLM and never fails — if no keyword matches, it returns the
// first candidate so the graph always makes forward progress.
func (r *Router) keywordFallback(content string, candidates []Candidate) Decision {
	lower := strings.ToLower(content)

	best := Decision{Level: L3Keyword}
	bestScore := 0.0
	for _, c := range candidates {
		keywords := r.keywordRules[c.Name]
		if len(keywords) == 0 {
			continue
		}
		matched := 0
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(keywords))
		if score > bestScore {
			bestScore = score
			best = Decision{Agent: c.Name, Level: L3Keyword, Confidence: score}
		}
	}

	if best.Agent == "" && len(candidates) > 0 {
		best = Decision{Agent: candidates[0].Name, Level: L3Keyword, Confidence: 0}
	}
	return best
}

// matchPattern checks content against a cached, case-insensitive regex
// compiled from pattern. Exposed for Candidate-building code that wants
// regex-based candidate filtering in addition to keyword rules.
func (r *Router) matchPattern(content, pattern string) bool {
	var re *regexp.Regexp
	if cached, ok := r.patternCache.Load(pattern); ok {
		re = cached.(*regexp.Regexp)
	} else {
		compiled, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return false
		}
		re = compiled
		r.patternCache.Store(pattern, re)
	}
	return re.MatchString(content)
}

func routingSystemPrompt(candidates []Candidate) string {
	var b strings.Builder
	b.WriteString("Choose exactly one agent to handle the user's request. Respond with JSON {\"agent\": <name>, \"confidence\": <0-1>}.\nAgents:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
	}
	return b.String()
}
