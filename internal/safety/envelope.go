package safety

import "fmt"

// EnvelopeConfig configures the turn and per-agent retry ceilings.
type EnvelopeConfig struct {
	MaxTurns   int
	MaxRetries int
}

// DefaultEnvelopeConfig returns sensible defaults.
func DefaultEnvelopeConfig() EnvelopeConfig {
	return EnvelopeConfig{MaxTurns: 25, MaxRetries: 3}
}

// ErrTurnCeilingExceeded is returned by CheckTurn once turnCount has reached
// the configured ceiling.
type ErrTurnCeilingExceeded struct {
	TurnCount int
	MaxTurns  int
}

func (e *ErrTurnCeilingExceeded) Error() string {
	return fmt.Sprintf("safety: turn ceiling exceeded (%d/%d)", e.TurnCount, e.MaxTurns)
}

// ErrRetryCeilingExceeded is returned by CheckRetry once an agent's retry
// count has reached the configured ceiling.
type ErrRetryCeilingExceeded struct {
	Agent      string
	Retries    int
	MaxRetries int
}

func (e *ErrRetryCeilingExceeded) Error() string {
	return fmt.Sprintf("safety: agent %q retry ceiling exceeded (%d/%d)", e.Agent, e.Retries, e.MaxRetries)
}

// Envelope evaluates the turn and retry ceilings. It holds no mutable state
// of its own — turn/retry counts live on ConversationState — so it is safe
// to share across threads.
type Envelope struct {
	cfg EnvelopeConfig
}

// NewEnvelope builds an Envelope from cfg.
func NewEnvelope(cfg EnvelopeConfig) *Envelope {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 25
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Envelope{cfg: cfg}
}

// CheckTurn returns an error once turnCount has reached the ceiling. The
// Router calls this before dispatching the next super-step.
func (e *Envelope) CheckTurn(turnCount int) error {
	if turnCount >= e.cfg.MaxTurns {
		return &ErrTurnCeilingExceeded{TurnCount: turnCount, MaxTurns: e.cfg.MaxTurns}
	}
	return nil
}

// CheckRetry returns an error once agent's retry count has reached the
// ceiling. Self-loop nodes (e.g. Builder) call this before looping again.
func (e *Envelope) CheckRetry(agent string, retries int) error {
	if retries >= e.cfg.MaxRetries {
		return &ErrRetryCeilingExceeded{Agent: agent, Retries: retries, MaxRetries: e.cfg.MaxRetries}
	}
	return nil
}

// MaxTurns returns the configured turn ceiling.
func (e *Envelope) MaxTurns() int { return e.cfg.MaxTurns }

// MaxRetries returns the configured per-agent retry ceiling.
func (e *Envelope) MaxRetries() int { return e.cfg.MaxRetries }
