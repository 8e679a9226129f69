// Package email turns a weekly report into an update email: template fill,
// draft files, HTML rendering and SMTP delivery.
package email

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"notionhelper/internal/logging"
	"notionhelper/internal/report"
)

// DefaultSubjectTemplate is used when no subject template is configured.
const DefaultSubjectTemplate = "Weekly Update - {week_start} to {week_end}"

// SampleTemplate is written by create-sample-config next to the config file.
const SampleTemplate = `Hi,

Here's my weekly update for {week_start} - {week_end}:

{project_summaries}

**Summary:** Completed {total_tasks} tasks across {project_count} projects this week.

Let me know if you have any questions!

Best regards,
{your_name}`

// Email is a composed message.
type Email struct {
	To      []string
	Cc      []string
	From    string
	Subject string
	Body    string
}

// Composer fills the body and subject templates from a report.
// An empty Template selects the default layout.
type Composer struct {
	Template        string
	SubjectTemplate string
	YourName        string
	From            string
	To              []string
	Cc              []string
}

var placeholderPattern = regexp.MustCompile(`\{\{|\}\}|\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// UnknownPlaceholderError reports a template placeholder with no value.
type UnknownPlaceholderError struct {
	Name string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("unknown template placeholder {%s}", e.Name)
}

// Fill replaces {name} placeholders with vars. "{{" and "}}" produce
// literal braces. The first placeholder missing from vars is reported.
func Fill(tmpl string, vars map[string]string) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(tok string) string {
		switch tok {
		case "{{":
			return "{"
		case "}}":
			return "}"
		}
		name := tok[1 : len(tok)-1]
		v, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return tok
		}
		return v
	})
	if missing != "" {
		return "", &UnknownPlaceholderError{Name: missing}
	}
	return out, nil
}

// Vars returns the placeholder values for rep.
func (c Composer) Vars(rep report.Report) map[string]string {
	return map[string]string{
		"week_start":        rep.Range.Start.Format("January 02"),
		"week_end":          rep.Range.End.Format("January 02, 2006"),
		"your_name":         c.YourName,
		"total_tasks":       strconv.Itoa(rep.TotalTasks),
		"project_count":     strconv.Itoa(len(rep.Projects)),
		"project_summaries": ProjectSummaries(rep),
	}
}

// Compose builds the email for rep. A template referencing an unknown
// placeholder is logged and replaced by the default layout.
func (c Composer) Compose(rep report.Report) Email {
	log := logging.Get(logging.CategoryEmail)
	vars := c.Vars(rep)

	var body string
	if c.Template != "" {
		filled, err := Fill(c.Template, vars)
		if err != nil {
			log.Warn("%v, using default email format", err)
			body = DefaultBody(rep, c.YourName)
		} else {
			body = filled
		}
	} else {
		body = DefaultBody(rep, c.YourName)
	}

	subjectTmpl := c.SubjectTemplate
	if subjectTmpl == "" {
		subjectTmpl = DefaultSubjectTemplate
	}
	subject, err := Fill(subjectTmpl, vars)
	if err != nil {
		log.Warn("subject: %v, using default subject", err)
		subject, _ = Fill(DefaultSubjectTemplate, vars)
	}

	from := c.From
	if from == "" {
		from = c.YourName
	}
	return Email{To: c.To, Cc: c.Cc, From: from, Subject: subject, Body: body}
}

// ProjectSummaries renders one "## name" block per project with
// "- 01/02: task" lines, blocks separated by a blank line.
func ProjectSummaries(rep report.Report) string {
	blocks := make([]string, 0, len(rep.Projects))
	for _, p := range rep.Projects {
		var sb strings.Builder
		sb.WriteString("## " + p.Key + "\n")
		tasks := p.Tasks()
		if len(tasks) == 0 {
			sb.WriteString("No tasks completed this week.")
		}
		for i, t := range tasks {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "- %s: %s", t.Date.Format("01/02"), t.Text)
		}
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

// DefaultBody is the layout used without a template. Dates are shown per
// project only when its tasks span more than one day.
func DefaultBody(rep report.Report, yourName string) string {
	lines := []string{
		"Hi,",
		"",
		fmt.Sprintf("Here's my weekly update for %s - %s:", rep.Range.Start.Format("January 02"), rep.Range.End.Format("January 02, 2006")),
		"",
	}
	for _, p := range rep.Projects {
		lines = append(lines, "## "+p.Key, "")
		multi := len(p.Days) > 1
		for _, d := range p.Days {
			if multi {
				lines = append(lines, "**"+d.Date.Format("Monday, January 02")+":**")
			}
			for _, t := range d.Tasks {
				lines = append(lines, "- "+t.Text)
			}
			if multi {
				lines = append(lines, "")
			}
		}
		lines = append(lines, "")
	}
	lines = append(lines,
		fmt.Sprintf("**Summary:** Completed %d tasks across %d projects this week.", rep.TotalTasks, len(rep.Projects)),
		"",
		"Let me know if you have any questions!",
		"",
		"Best regards,",
		yourName,
	)
	return strings.Join(lines, "\n")
}
