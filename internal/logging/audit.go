package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES - one per externally visible write
// =============================================================================

// AuditEventType names something the run changed outside the process.
type AuditEventType string

const (
	AuditRunStart        AuditEventType = "run_start"
	AuditRunEnd          AuditEventType = "run_end"
	AuditTargetAppend    AuditEventType = "target_append"
	AuditCalendarSection AuditEventType = "calendar_section"
	AuditDraftSaved      AuditEventType = "draft_saved"
	AuditEmailSent       AuditEventType = "email_sent"
	AuditCronInstalled   AuditEventType = "cron_installed"
	AuditConfigWritten   AuditEventType = "config_written"
)

// AuditEvent is one structured audit entry.
type AuditEvent struct {
	Type     AuditEventType
	RunID    string
	Target   string
	Count    int
	Success  bool
	Error    string
	Duration time.Duration
}

// AuditLogger writes audit events through the "audit" named logger.
type AuditLogger struct {
	runID string
}

// Audit returns an audit logger bound to a run id.
func Audit(runID string) *AuditLogger {
	return &AuditLogger{runID: runID}
}

// Log writes an event. Failed events are logged at warn level.
func (a *AuditLogger) Log(e AuditEvent) {
	if e.RunID == "" {
		e.RunID = a.runID
	}
	fields := []zap.Field{
		zap.String("event", string(e.Type)),
		zap.String("run_id", e.RunID),
		zap.Bool("success", e.Success),
	}
	if e.Target != "" {
		fields = append(fields, zap.String("target", e.Target))
	}
	if e.Count > 0 {
		fields = append(fields, zap.Int("count", e.Count))
	}
	if e.Duration > 0 {
		fields = append(fields, zap.Duration("duration", e.Duration))
	}
	l := Base().Named("audit")
	if !e.Success {
		l.Warn("audit", append(fields, zap.String("error", e.Error))...)
		return
	}
	l.Info("audit", fields...)
}

// Append records items appended to a reconciliation target.
func (a *AuditLogger) Append(target string, count int, err error) {
	a.Log(AuditEvent{Type: AuditTargetAppend, Target: target, Count: count, Success: err == nil, Error: errString(err)})
}

// Write records a single write of the given type.
func (a *AuditLogger) Write(t AuditEventType, target string, err error) {
	a.Log(AuditEvent{Type: t, Target: target, Success: err == nil, Error: errString(err)})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
