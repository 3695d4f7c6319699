package config

// Defaults holds settings applied to every agent that does not override
// them in its own entry. Budget fields are pointers so an explicit zero
// can be told apart from "not set".
type Defaults struct {
	// Agent is the agent used for task submissions that do not name
	// one.
	Agent string `yaml:"agent"`

	// LLMProvider names the provider used by agents that do not pick
	// their own.
	LLMProvider string `yaml:"llm_provider"`

	// MaxIterations bounds completed tool executions per run.
	MaxIterations *int `yaml:"max_iterations"`

	// ModelRetryLimit bounds consecutive model-call failures before a
	// run fails.
	ModelRetryLimit *int `yaml:"model_retry_limit"`

	// ParseRetryLimit bounds consecutive unparsable model responses
	// before a run fails.
	ParseRetryLimit *int `yaml:"parse_retry_limit"`

	// IterationTimeout is the per-model-call and per-tool-call deadline.
	IterationTimeout Duration `yaml:"iteration_timeout"`
}
