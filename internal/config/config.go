package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without system zoneinfo

	"gopkg.in/yaml.v3"

	"notionhelper/internal/types"
)

// DefaultPath is read when --config is not given.
const DefaultPath = "config.yaml"

// Todo and calendar source/target selectors.
const (
	SourceFiles  = "files"
	SourceNotion = "notion"
	SourceCalDAV = "caldav"
	SourceICS    = "ics"
	TargetFiles  = "files"
	TargetNotion = "notion"
	TargetBoth   = "both"
)

// Config holds all notionhelper configuration.
type Config struct {
	Timezone   string `yaml:"timezone"`
	TodoSource string `yaml:"todo_source"` // files, notion
	// Go time layout for daily todo file names.
	DailyTodoFilenamePattern string `yaml:"daily_todo_filename_pattern"`

	Notion   NotionConfig    `yaml:"notion"`
	ICloud   ICloudConfig    `yaml:"icloud"`
	Calendar CalendarConfig  `yaml:"calendar"`
	Email    EmailConfig     `yaml:"email"`
	SMTP     SMTPConfig      `yaml:"smtp"`
	LLM      LLMConfig       `yaml:"llm"`
	Paths    PathsConfig     `yaml:"paths"`
	Projects []ProjectConfig `yaml:"projects"`
	Sync     SyncConfig      `yaml:"sync"`
	Cron     CronConfig      `yaml:"cron"`
	History  HistoryConfig   `yaml:"history"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// NotionConfig configures the Notion workspace.
type NotionConfig struct {
	Token             string `yaml:"token"`
	ProjectDatabaseID string `yaml:"project_database_id"`
	DailyLogPageID    string `yaml:"daily_log_page_id"`
	Timeout           string `yaml:"timeout"`
}

// ICloudConfig holds CalDAV credentials. Password is an app-specific password.
type ICloudConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Endpoint string `yaml:"endpoint"`
}

// CalendarConfig selects the calendar source and where events are written.
type CalendarConfig struct {
	Source    string   `yaml:"source"`    // caldav, ics
	Calendars []string `yaml:"calendars"` // empty = all
	ICSFiles  []string `yaml:"ics_files"` // paths or http(s)/webcal URLs
	WriteTo   string   `yaml:"write_to"`  // files, notion, both
}

// EmailConfig configures the weekly email.
type EmailConfig struct {
	YourName        string   `yaml:"your_name"`
	From            string   `yaml:"from"`
	ToList          []string `yaml:"to_list"`
	CCList          []string `yaml:"cc_list"`
	SubjectTemplate string   `yaml:"subject_template"`
	DraftDir        string   `yaml:"draft_dir"`
	Send            bool     `yaml:"send"`
}

// SMTPConfig configures delivery when email.send is true.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TLS      string `yaml:"tls"` // mandatory, opportunistic, ssl, none
}

// PathsConfig holds local file locations. A leading ~ is expanded on load.
type PathsConfig struct {
	DailyTodosDir string `yaml:"daily_todos_dir"`
	EmailTemplate string `yaml:"email_template"`
	ProjectDir    string `yaml:"project_dir"`
}

// ProjectConfig declares a project statically. Target is a Notion page id
// or, with sync.project_target=files, a file path.
type ProjectConfig struct {
	Name   string `yaml:"name"`
	Prefix string `yaml:"prefix,omitempty"`
	Target string `yaml:"target,omitempty"`
}

// SyncConfig tunes todo reconciliation.
type SyncConfig struct {
	// ProjectTarget is notion or files.
	ProjectTarget string `yaml:"project_target"`
	// Merge appends missing children under items already in the target.
	Merge bool `yaml:"merge"`
	// Categories replaces the keyword table; order is priority.
	Categories []CategoryConfig `yaml:"categories,omitempty"`
}

// CategoryConfig is one keyword category.
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CronConfig configures setup-cron.
type CronConfig struct {
	Schedule string `yaml:"schedule"`
	LogPath  string `yaml:"log_path"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:                 "UTC",
		TodoSource:               SourceFiles,
		DailyTodoFilenamePattern: "2006-01-02.md",

		Notion: NotionConfig{
			Timeout: "30s",
		},

		ICloud: ICloudConfig{
			Endpoint: "https://caldav.icloud.com",
		},

		Calendar: CalendarConfig{
			Source:  SourceCalDAV,
			WriteTo: TargetFiles,
		},

		Email: EmailConfig{
			SubjectTemplate: "Weekly Update - {week_start} to {week_end}",
			DraftDir:        "emails",
		},

		SMTP: SMTPConfig{
			Port: 587,
			TLS:  "mandatory",
		},

		LLM: LLMConfig{
			Provider:       "deepseek",
			Timeout:        "60s",
			MaxInputTokens: 6000,
		},

		Paths: PathsConfig{
			DailyTodosDir: "~/todos",
			EmailTemplate: "templates/email_template.txt",
			ProjectDir:    "projects",
		},

		Sync: SyncConfig{
			ProjectTarget: TargetNotion,
		},

		Cron: CronConfig{
			Schedule: "0 8 * * 5",
			LogPath:  "/tmp/notion_helper.log",
		},

		History: HistoryConfig{
			Enabled: true,
			Path:    "~/.notionhelper/history.db",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file is a
// ConfigurationError; run create-sample-config first.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &types.ConfigurationError{Err: fmt.Errorf("configuration file not found: %s", path)}
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &types.ConfigurationError{Err: fmt.Errorf("failed to parse config: %w", err)}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()
	cfg.expandPaths()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) expandPaths() {
	c.Paths.DailyTodosDir = ExpandHome(c.Paths.DailyTodosDir)
	c.Paths.EmailTemplate = ExpandHome(c.Paths.EmailTemplate)
	c.Paths.ProjectDir = ExpandHome(c.Paths.ProjectDir)
	c.History.Path = ExpandHome(c.History.Path)
	c.Logging.File = ExpandHome(c.Logging.File)
	for i, f := range c.Calendar.ICSFiles {
		c.Calendar.ICSFiles[i] = ExpandHome(f)
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "timezone", Err: err}
	}
	return loc, nil
}

// GetNotionTimeout returns the Notion request timeout as a duration.
func (c *Config) GetNotionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Notion.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ProjectList converts the static project list.
func (c *Config) ProjectList() []types.Project {
	out := make([]types.Project, 0, len(c.Projects))
	for _, p := range c.Projects {
		out = append(out, types.Project{Name: p.Name, Prefix: p.Prefix, Target: p.Target})
	}
	return out
}
