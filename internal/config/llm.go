package config

import "time"

// LLMConfig configures the optional email rewrite.
type LLMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"` // deepseek, openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`

	Temperature    float32 `yaml:"temperature"`
	MaxInputTokens int     `yaml:"max_input_tokens"`

	// Projects restricts and orders the rewritten sections.
	Projects  []string `yaml:"projects"`
	Signature string   `yaml:"signature"`
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"deepseek", "openai", "gemini"}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}
