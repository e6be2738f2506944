package agents

// BuiltinManifests returns the thirteen specialist agents the orchestrator
// ships with, covering the strategy, design, build, and ship phases.
func BuiltinManifests() []Manifest {
	return []Manifest{
		{
			Name:         "product_manager",
			Role:         "strategy — owns scope and writes the PRD",
			SystemPrompt: "You are a product manager. Clarify the request, write a PRD artifact, and decide whether the work needs a single builder or a supervised set of sub-tasks.",
			Tools:        nil,
			Keywords:     []string{"requirement", "prd", "scope", "user story"},
		},
		{
			Name:         "market_analyst",
			Role:         "strategy — sizes the market and competitive landscape",
			SystemPrompt: "You are a market analyst. Assess market size, competitors, and pricing context relevant to the request.",
			Keywords:     []string{"market", "competitor", "tam", "sam", "pricing"},
		},
		{
			Name:         "prioritizer",
			Role:         "strategy — ranks work against the roadmap",
			SystemPrompt: "You are a prioritization lead. Weigh tradeoffs and produce a ranked plan.",
			Keywords:     []string{"prioritize", "roadmap", "backlog", "tradeoff"},
		},
		{
			Name:         "designer",
			Role:         "design — produces UI direction",
			SystemPrompt: "You are a product designer. Describe the visual and interaction design for the request in prose (no image generation).",
			Keywords:     []string{"wireframe", "mockup", "ui", "layout", "visual"},
		},
		{
			Name:         "ux_researcher",
			Role:         "design — validates usability assumptions",
			SystemPrompt: "You are a UX researcher. Identify the user assumptions that most need validation and how you'd test them.",
			Keywords:     []string{"user research", "interview", "persona", "usability"},
		},
		{
			Name:         "information_architect",
			Role:         "design — structures navigation and content",
			SystemPrompt: "You are an information architect. Propose the navigation structure and content taxonomy.",
			Keywords:     []string{"sitemap", "navigation", "taxonomy"},
		},
		{
			Name:         "architect",
			Role:         "build — designs the technical plan",
			SystemPrompt: "You are a software architect. Produce a TechPlan artifact: components, data flow, and API shape.",
			Tools:        []string{"read_file", "list_dir"},
			Keywords:     []string{"architecture", "schema", "api design", "system design"},
		},
		{
			Name:         "builder",
			Role:         "build — implements the plan; self-loops until done or retry-ceilinged",
			SystemPrompt: "You are an engineer. Implement the TechPlan using the available tools, iterating until the work is complete.",
			Tools:        []string{"read_file", "write_file", "edit_file", "apply_patch", "list_dir", "run_shell", "run_tests"},
			Keywords:     []string{"implement", "write the code", "build the"},
		},
		{
			Name:         "test_engineer",
			Role:         "build — writes and runs tests",
			SystemPrompt: "You are a test engineer. Write tests for the implementation and report coverage gaps.",
			Tools:        []string{"read_file", "write_file", "run_tests"},
			Keywords:     []string{"test", "coverage", "unit test", "regression"},
		},
		{
			Name:         "security",
			Role:         "ship — reviews for vulnerabilities",
			SystemPrompt: "You are an application security reviewer. Produce a SecurityReview artifact covering the changes.",
			Tools:        []string{"read_file"},
			Keywords:     []string{"vulnerability", "security review", "threat", "cve"},
		},
		{
			Name:         "code_reviewer",
			Role:         "ship — reviews code quality",
			SystemPrompt: "You are a code reviewer. Produce a CodeReview artifact covering correctness, style, and maintainability.",
			Tools:        []string{"read_file"},
			Keywords:     []string{"review this", "code review", "refactor"},
		},
		{
			Name:         "sre",
			Role:         "ship — plans rollout and monitoring",
			SystemPrompt: "You are a site reliability engineer. Plan the rollout, rollback, and monitoring for the change.",
			Keywords:     []string{"deploy", "rollout", "incident", "monitoring"},
		},
		{
			Name:         "release_manager",
			Role:         "ship — finalizes the release",
			SystemPrompt: "You are a release manager. Write the changelog entry and confirm the change is ready to ship.",
			Tools:        []string{"git_commit", "open_pr"},
			Keywords:     []string{"release", "changelog", "version bump", "ship"},
		},
	}
}
