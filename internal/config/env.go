package config

import "os"

// applyEnvOverrides applies environment variable overrides. Secrets are
// usually kept out of the YAML file this way.
func (c *Config) applyEnvOverrides() {
	if token := os.Getenv("NOTION_TOKEN"); token != "" {
		c.Notion.Token = token
	}
	if user := os.Getenv("ICLOUD_USERNAME"); user != "" {
		c.ICloud.Username = user
	}
	if pass := os.Getenv("ICLOUD_PASSWORD"); pass != "" {
		c.ICloud.Password = pass
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		c.SMTP.Password = pass
	}
	if tz := os.Getenv("NOTIONHELPER_TIMEZONE"); tz != "" {
		c.Timezone = tz
	}

	// LLM API key: the variable matching the configured provider wins,
	// otherwise the first one set picks the provider.
	keys := []struct{ provider, env string }{
		{"deepseek", "DEEPSEEK_API_KEY"},
		{"openai", "OPENAI_API_KEY"},
		{"gemini", "GEMINI_API_KEY"},
	}
	for _, k := range keys {
		if c.LLM.Provider == k.provider {
			if key := os.Getenv(k.env); key != "" {
				c.LLM.APIKey = key
				return
			}
		}
	}
	if c.LLM.APIKey != "" {
		return
	}
	for _, k := range keys {
		if key := os.Getenv(k.env); key != "" {
			c.LLM.APIKey = key
			c.LLM.Provider = k.provider
			return
		}
	}
}
