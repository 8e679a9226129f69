package config

import (
	"fmt"
	"os"
)

// SampleConfig returns a configuration with placeholder values for every
// section the user has to fill in.
func SampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Timezone = "America/New_York"
	cfg.Notion.Token = "secret_your_notion_integration_token"
	cfg.Notion.ProjectDatabaseID = "your_project_database_id"
	cfg.Notion.DailyLogPageID = "your_daily_log_page_id"
	cfg.ICloud.Username = "you@icloud.com"
	cfg.ICloud.Password = "app-specific-password"
	cfg.Calendar.Calendars = []string{"Work"}
	cfg.Email.YourName = "Your Name"
	cfg.Email.From = "you@example.com"
	cfg.Email.ToList = []string{"boss@example.com"}
	cfg.Email.CCList = []string{}
	cfg.SMTP.Host = "smtp.example.com"
	cfg.Projects = []ProjectConfig{
		{Name: "Example Project", Prefix: "EP"},
	}
	return cfg
}

// WriteSample writes SampleConfig to path. An existing file is left alone
// unless overwrite is set.
func WriteSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	return SampleConfig().Save(path)
}
