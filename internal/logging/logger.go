// Package logging provides categorized logging for notionhelper on top of zap.
// Console output goes to stderr; when a log file is configured every entry is
// also appended to it as JSON.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config loading
	CategoryTodos     Category = "todos"     // Todo extraction from files and Notion
	CategoryNotion    Category = "notion"    // Notion API calls
	CategoryCalendar  Category = "calendar"  // Calendar sources and import
	CategoryReconcile Category = "reconcile" // Reconciliation engine
	CategoryReport    Category = "report"    // Weekly report aggregation
	CategoryEmail     Category = "email"     // Email composition, drafts, SMTP
	CategoryPolish    Category = "polish"    // LLM rewrite of the email
	CategoryCron      Category = "cron"      // Cron line and crontab installation
	CategoryHistory   Category = "history"   // Run history store
	CategoryPipeline  Category = "pipeline"  // weekly-automation step runner
)

// Options mirrors config.LoggingConfig plus the CLI verbosity flag,
// kept separate to avoid an import cycle.
type Options struct {
	Level      string
	File       string
	Categories map[string]bool
	Verbose    bool
	// Console defaults to os.Stderr.
	Console io.Writer
}

// Logger wraps a named zap logger with printf-style helpers.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu       sync.RWMutex
	base     = zap.NewNop()
	loggers  = make(map[Category]*Logger)
	enabled  map[string]bool
	logFile  *os.File
	initDone bool
)

// Initialize builds the shared zap core. It may be called again; the
// previous file handle is closed.
func Initialize(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), level),
	}

	var file *os.File
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(f),
			zapcore.DebugLevel,
		))
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = file
	base = zap.New(zapcore.NewTee(cores...))
	enabled = opts.Categories
	loggers = make(map[Category]*Logger)
	initDone = true
	return nil
}

// Base returns the root zap logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories missing from the filter are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !initDone {
		return false
	}
	on, ok := enabled[string(category)]
	return !ok || on
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger before Initialize or when the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{category: category, sugar: base.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// With returns a child logger carrying key/value pairs on every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Zap exposes the underlying logger for structured fields.
func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// CloseAll flushes buffered entries and closes the log file (call at shutdown).
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	base = zap.NewNop()
	loggers = make(map[Category]*Logger)
	initDone = false
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Todos logs to the todos category
func Todos(format string, args ...interface{}) {
	Get(CategoryTodos).Info(format, args...)
}

// TodosDebug logs debug to the todos category
func TodosDebug(format string, args ...interface{}) {
	Get(CategoryTodos).Debug(format, args...)
}

// Notion logs to the notion category
func Notion(format string, args ...interface{}) {
	Get(CategoryNotion).Info(format, args...)
}

// NotionDebug logs debug to the notion category
func NotionDebug(format string, args ...interface{}) {
	Get(CategoryNotion).Debug(format, args...)
}

// Calendar logs to the calendar category
func Calendar(format string, args ...interface{}) {
	Get(CategoryCalendar).Info(format, args...)
}

// CalendarDebug logs debug to the calendar category
func CalendarDebug(format string, args ...interface{}) {
	Get(CategoryCalendar).Debug(format, args...)
}

// Reconcile logs to the reconcile category
func Reconcile(format string, args ...interface{}) {
	Get(CategoryReconcile).Info(format, args...)
}

// ReconcileDebug logs debug to the reconcile category
func ReconcileDebug(format string, args ...interface{}) {
	Get(CategoryReconcile).Debug(format, args...)
}
