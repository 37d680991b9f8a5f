// Package config loads engine-wide defaults from YAML: attempt/iteration
// budgets, model parameters, and sampler chunk sizing. It never touches
// prompt templates or agent-specific tool wiring, both of which stay
// peripheral to the core per spec.md §1.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"goa.design/agentcore/agent"
)

type (
	// ModelDefaults supplies default model parameters for an agent.Config.
	// ApplyToAgentConfig uses Name and MaxTokens; Temperature is loaded but
	// not applied.
	ModelDefaults struct {
		Name        string  `yaml:"name"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	}

	// SamplerDefaults sizes the diversity sampler's chunking.
	SamplerDefaults struct {
		ChunkSize int `yaml:"chunk_size"`
		Overlap   int `yaml:"overlap"`
	}

	// Config is the engine-wide default configuration, independent of any
	// single agent definition.
	Config struct {
		MaxAttempts             int             `yaml:"max_attempts"`
		MaxIterationsPerAttempt int             `yaml:"max_iterations_per_attempt"`
		Model                   ModelDefaults   `yaml:"model"`
		Sampler                 SamplerDefaults `yaml:"sampler"`
	}
)

// Default returns a Config whose attempt/iteration budgets and sampler sizes
// match the values the agent and sampler packages themselves fall back to
// when left unconfigured (MaxAttempts 1, agent.DefaultMaxIterationsPerAttempt,
// sampler.ChunkSize/Overlap). Model.MaxTokens defaults to 4096 here only;
// agent.Define applies no MaxTokens default of its own.
func Default() Config {
	return Config{
		MaxAttempts:             1,
		MaxIterationsPerAttempt: agent.DefaultMaxIterationsPerAttempt,
		Model: ModelDefaults{
			Temperature: 0,
			MaxTokens:   4096,
		},
		Sampler: SamplerDefaults{
			ChunkSize: 200,
			Overlap:   10,
		},
	}
}

// Load reads a YAML file at path and overlays it onto Default. A missing
// file is not an error; callers that want to require one should stat it
// first.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyToAgentConfig overlays the loaded defaults onto an agent.Config's
// attempt/iteration budgets, model name, and max tokens wherever the caller
// left them at their zero value, so a caller can declare only what's agent
// specific (prompts, tools, validators) and inherit the rest. Temperature
// is not overlaid.
func ApplyToAgentConfig[R, A, O any](cfg Config, ac *agent.Config[R, A, O]) {
	if ac.MaxAttempts == 0 {
		ac.MaxAttempts = cfg.MaxAttempts
	}
	if ac.MaxIterationsPerAttempt == 0 {
		ac.MaxIterationsPerAttempt = cfg.MaxIterationsPerAttempt
	}
	if ac.Model.Name == "" {
		ac.Model.Name = cfg.Model.Name
	}
	if ac.Model.MaxTokens == 0 {
		ac.Model.MaxTokens = cfg.Model.MaxTokens
	}
}
