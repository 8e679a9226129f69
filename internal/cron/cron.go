// Package cron builds the weekly crontab line and installs it.
package cron

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"
)

const (
	// DefaultSchedule is Friday 08:00 in the cron daemon's zone.
	DefaultSchedule = "0 8 * * 5"
	DefaultLogPath  = "/tmp/notion_helper.log"
	// Marker identifies an installed entry, together with the command name.
	Marker  = "notion_helper"
	Command = "weekly-automation"
)

// ErrAlreadyInstalled is returned by Install when an entry exists.
var ErrAlreadyInstalled = errors.New("cron job already exists; remove it first to update")

// Entry describes the weekly-automation job.
type Entry struct {
	Schedule   string
	Dir        string
	Executable string
	ConfigPath string
	LogPath    string
}

// Validate parses the schedule as a standard five-field expression.
func Validate(schedule string) (robfig.Schedule, error) {
	sched, err := robfig.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return sched, nil
}

// Next returns the first activation of schedule after from.
func Next(schedule string, from time.Time) (time.Time, error) {
	sched, err := Validate(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// Line renders the crontab line:
//
//	0 8 * * 5 cd DIR && EXE --config CFG weekly-automation >> LOG 2>&1
func (e Entry) Line() (string, error) {
	schedule := e.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := Validate(schedule); err != nil {
		return "", err
	}
	if e.Executable == "" {
		return "", errors.New("executable path is required")
	}
	logPath := e.LogPath
	if logPath == "" {
		logPath = DefaultLogPath
	}

	var cmd []string
	if e.Dir != "" {
		cmd = append(cmd, "cd", shellQuote(e.Dir), "&&")
	}
	cmd = append(cmd, shellQuote(e.Executable))
	if e.ConfigPath != "" {
		cmd = append(cmd, "--config", shellQuote(e.ConfigPath))
	}
	cmd = append(cmd, Command, ">>", shellQuote(logPath), "2>&1")
	return schedule + " " + strings.Join(cmd, " "), nil
}

// shellQuote single-quotes s when it holds characters the shell would
// interpret.
func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]#~{}!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Crontab reads and replaces the user's crontab.
type Crontab interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, content string) error
}

// Installed reports whether content already holds an entry.
func Installed(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, Marker) || strings.Contains(line, Command) {
			return true
		}
	}
	return false
}

// Install appends line to the crontab unless an entry exists.
func Install(ctx context.Context, tab Crontab, line string) error {
	current, err := tab.Read(ctx)
	if err != nil {
		return fmt.Errorf("read crontab: %w", err)
	}
	if Installed(current) {
		return ErrAlreadyInstalled
	}
	next := current
	if next != "" && !strings.HasSuffix(next, "\n") {
		next += "\n"
	}
	next += line + "\n"
	if err := tab.Write(ctx, next); err != nil {
		return fmt.Errorf("write crontab: %w", err)
	}
	return nil
}

// SystemCrontab runs the crontab binary.
type SystemCrontab struct {
	// Binary defaults to "crontab".
	Binary string
}

func (s SystemCrontab) bin() string {
	if s.Binary == "" {
		return "crontab"
	}
	return s.Binary
}

// Read returns the current crontab. "no crontab for user" reads as empty.
func (s SystemCrontab) Read(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.bin(), "-l")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(stderr.String(), "no crontab") {
			return "", nil
		}
		return "", fmt.Errorf("%s -l: %w: %s", s.bin(), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Write replaces the crontab with content.
func (s SystemCrontab) Write(ctx context.Context, content string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.bin(), "-")
	cmd.Stdin = strings.NewReader(content)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s -: %w: %s", s.bin(), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
