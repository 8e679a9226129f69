package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
)

// Status styles
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// printer writes the human-facing progress lines. Logs go to stderr.
type printer struct {
	w io.Writer
}

func (p printer) header(format string, args ...interface{}) {
	fmt.Fprintln(p.w, headerStyle.Render(fmt.Sprintf(format, args...)))
}

func (p printer) info(format string, args ...interface{}) {
	fmt.Fprintln(p.w, "   "+fmt.Sprintf(format, args...))
}

func (p printer) ok(format string, args ...interface{}) {
	fmt.Fprintln(p.w, "   "+okStyle.Render("✓ ")+fmt.Sprintf(format, args...))
}

func (p printer) warn(format string, args ...interface{}) {
	fmt.Fprintln(p.w, "   "+warnStyle.Render("! ")+fmt.Sprintf(format, args...))
}

func (p printer) fail(format string, args ...interface{}) {
	fmt.Fprintln(p.w, "   "+failStyle.Render("✗ ")+fmt.Sprintf(format, args...))
}

func (p printer) dim(format string, args ...interface{}) {
	fmt.Fprintln(p.w, "      "+dimStyle.Render(fmt.Sprintf(format, args...)))
}

// =============================================================================
// CONFIRM PROMPT
// =============================================================================

type confirmModel struct {
	question string
	answer   bool
	done     bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(key.String()) {
	case "y":
		m.answer = true
		m.done = true
		return m, tea.Quit
	case "n", "enter", "esc", "ctrl+c", "q":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		if m.answer {
			return m.question + " yes\n"
		}
		return m.question + " no\n"
	}
	return m.question + dimStyle.Render(" [y/N] ")
}

// confirm asks a yes/no question. Anything but "y" is no.
func confirm(question string, in io.Reader, out io.Writer) (bool, error) {
	p := tea.NewProgram(confirmModel{question: question}, tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("confirm prompt: %w", err)
	}
	m, ok := final.(confirmModel)
	return ok && m.answer, nil
}

// =============================================================================
// PASSWORD PROMPT
// =============================================================================

// promptPassword reads a secret without echo when stdin is a terminal.
// It returns "" when stdin is not interactive.
func promptPassword(prompt string) (string, error) {
	if !readline.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	rl, err := readline.NewEx(&readline.Config{})
	if err != nil {
		return "", err
	}
	defer rl.Close()
	pw, err := rl.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pw)), nil
}

// =============================================================================
// MARKDOWN PREVIEW
// =============================================================================

// renderMarkdown renders body for the terminal, falling back to the raw text.
func renderMarkdown(body string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return body
	}
	out, err := r.Render(body)
	if err != nil {
		return body
	}
	return out
}
