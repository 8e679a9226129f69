package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"notionhelper/internal/types"
)

func init() {
	// Report yaml keys, not Go field names.
	validation.ErrorTag = "yaml"
}

// Validate checks settings that every command depends on. Credentials are
// checked per command with the Require* methods.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.Required, validation.By(validTimezone)),
		validation.Field(&c.TodoSource, validation.Required, validation.In(SourceFiles, SourceNotion)),
		validation.Field(&c.DailyTodoFilenamePattern, validation.Required, validation.By(validFilenamePattern)),
	)
	if err != nil {
		return toConfigError("", err)
	}

	sections := []struct {
		name string
		err  error
	}{
		{"calendar", validation.ValidateStruct(&c.Calendar,
			validation.Field(&c.Calendar.Source, validation.Required, validation.In(SourceCalDAV, SourceICS)),
			validation.Field(&c.Calendar.WriteTo, validation.Required, validation.In(TargetFiles, TargetNotion, TargetBoth)),
		)},
		{"email", validation.ValidateStruct(&c.Email,
			validation.Field(&c.Email.ToList, validation.Each(is.EmailFormat)),
			validation.Field(&c.Email.CCList, validation.Each(is.EmailFormat)),
			validation.Field(&c.Email.From, is.EmailFormat),
		)},
		{"smtp", validation.ValidateStruct(&c.SMTP,
			validation.Field(&c.SMTP.Port, validation.Min(0), validation.Max(65535)),
			validation.Field(&c.SMTP.TLS, validation.In("mandatory", "opportunistic", "ssl", "none")),
		)},
		{"llm", validation.ValidateStruct(&c.LLM,
			validation.Field(&c.LLM.Provider, validation.When(c.LLM.Enabled, validation.Required, validation.In(toIfaces(ValidProviders)...))),
			validation.Field(&c.LLM.MaxInputTokens, validation.Min(0)),
			validation.Field(&c.LLM.Temperature, validation.Min(float32(0)), validation.Max(float32(2))),
		)},
		{"sync", validation.ValidateStruct(&c.Sync,
			validation.Field(&c.Sync.ProjectTarget, validation.Required, validation.In(TargetNotion, TargetFiles)),
		)},
		{"logging", validation.ValidateStruct(&c.Logging,
			validation.Field(&c.Logging.Level, validation.In("debug", "info", "warn", "error")),
		)},
	}
	for _, s := range sections {
		if s.err != nil {
			return toConfigError(s.name, s.err)
		}
	}

	for i, p := range c.Projects {
		err := validation.ValidateStruct(&p,
			validation.Field(&p.Name, validation.Required),
		)
		if err != nil {
			return toConfigError(fmt.Sprintf("projects[%d]", i), err)
		}
	}
	return nil
}

// RequireNotion checks the settings needed to talk to Notion.
func (c *Config) RequireNotion() error {
	err := validation.ValidateStruct(&c.Notion,
		validation.Field(&c.Notion.Token, validation.Required.Error("is required (or set NOTION_TOKEN)")),
		validation.Field(&c.Notion.ProjectDatabaseID, validation.Required),
		validation.Field(&c.Notion.DailyLogPageID, validation.Required),
	)
	return toConfigError("notion", err)
}

// RequireCalendar checks the settings needed by the configured calendar source.
func (c *Config) RequireCalendar() error {
	var err error
	switch c.Calendar.Source {
	case SourceICS:
		err = validation.ValidateStruct(&c.Calendar,
			validation.Field(&c.Calendar.ICSFiles, validation.Required),
		)
		return toConfigError("calendar", err)
	default:
		err = validation.ValidateStruct(&c.ICloud,
			validation.Field(&c.ICloud.Username, validation.Required.Error("is required (or set ICLOUD_USERNAME)")),
			validation.Field(&c.ICloud.Password, validation.Required.Error("is required (or set ICLOUD_PASSWORD)")),
			validation.Field(&c.ICloud.Endpoint, validation.Required, is.URL),
		)
		return toConfigError("icloud", err)
	}
}

// RequireEmail checks the settings needed to compose the weekly email.
func (c *Config) RequireEmail() error {
	err := validation.ValidateStruct(&c.Email,
		validation.Field(&c.Email.YourName, validation.Required),
		validation.Field(&c.Email.ToList, validation.Required),
	)
	return toConfigError("email", err)
}

// RequireSMTP checks the settings needed to send mail.
func (c *Config) RequireSMTP() error {
	err := validation.ValidateStruct(&c.SMTP,
		validation.Field(&c.SMTP.Host, validation.Required),
		validation.Field(&c.SMTP.Port, validation.Required),
	)
	if err != nil {
		return toConfigError("smtp", err)
	}
	err = validation.ValidateStruct(&c.Email,
		validation.Field(&c.Email.From, validation.When(c.SMTP.Username == "", validation.Required)),
	)
	return toConfigError("email", err)
}

// RequireLLM checks the settings needed by the email rewrite.
func (c *Config) RequireLLM() error {
	err := validation.ValidateStruct(&c.LLM,
		validation.Field(&c.LLM.Provider, validation.Required, validation.In(toIfaces(ValidProviders)...)),
		validation.Field(&c.LLM.APIKey, validation.Required.Error("is required (or set the provider's API key variable)")),
	)
	return toConfigError("llm", err)
}

func validTimezone(value interface{}) error {
	s, _ := value.(string)
	if _, err := time.LoadLocation(s); err != nil {
		return errors.New("unknown timezone")
	}
	return nil
}

// validFilenamePattern rejects layouts that do not reference a day, since
// each day needs its own file.
func validFilenamePattern(value interface{}) error {
	s, _ := value.(string)
	if strings.ContainsRune(s, '/') {
		return errors.New("must be a file name, not a path")
	}
	probe := time.Date(2006, time.January, 2, 0, 0, 0, 0, time.UTC)
	if probe.Format(s) == probe.AddDate(0, 0, 1).Format(s) {
		return errors.New("must include the day (e.g. 2006-01-02.md)")
	}
	return nil
}

// toConfigError converts ozzo errors into a ConfigurationError naming the
// first failing key.
func toConfigError(section string, err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &types.ConfigurationError{Field: section, Err: err}
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	field := keys[0]
	if section != "" {
		field = section + "." + field
	}
	return &types.ConfigurationError{Field: field, Err: errs[keys[0]]}
}

func toIfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
