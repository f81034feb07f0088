// Package obslog is the firmware's console logger: a thin, allocation-
// conscious mirror of every log line to the USB console, feeding warning/
// error/critical lines into the health monitor's ring; critical lines are
// queued for an immediate diagnostics publish.
//
// Grounded on the teacher's hand-rolled Logger in main.go (print/
// writeString/writePart, no stdlib fmt on the MCU side) — no third-party
// logging library fits a cooperative, allocation-averse tick loop, so
// this is one of the ambient-stack pieces deliberately left on a
// hand-rolled base rather than an ecosystem import, matching the
// teacher's own choice for the same concern.
package obslog

import (
	"time"

	"trabajante/internal/health"
	"trabajante/x/fmtx"
)

// Logger mirrors lines to console and forwards warning-and-above events
// to the health monitor.
type Logger struct {
	monitor *health.Monitor
}

func New(monitor *health.Monitor) *Logger { return &Logger{monitor: monitor} }

func (l *Logger) print(sev health.Severity, component, message string) {
	fmtx.Printf("[%s] %s: %s\n", string(sev), component, message)
}

func (l *Logger) Debugf(component, format string, args ...any) {
	msg := fmtx.Sprintf(format, args...)
	l.print(health.SeverityDebug, component, msg)
}

func (l *Logger) Infof(component, format string, args ...any) {
	msg := fmtx.Sprintf(format, args...)
	l.print(health.SeverityInfo, component, msg)
}

func (l *Logger) Warnf(component string, code int, now time.Time, format string, args ...any) {
	msg := fmtx.Sprintf(format, args...)
	l.print(health.SeverityWarning, component, msg)
	l.monitor.RecordError(code, health.SeverityWarning, component, nil, msg, now)
}

func (l *Logger) Errorf(component string, code int, gpio *int, now time.Time, format string, args ...any) {
	msg := fmtx.Sprintf(format, args...)
	l.print(health.SeverityError, component, msg)
	l.monitor.RecordError(code, health.SeverityError, component, gpio, msg, now)
}

func (l *Logger) Criticalf(component string, code int, now time.Time, format string, args ...any) {
	msg := fmtx.Sprintf(format, args...)
	l.print(health.SeverityCritical, component, msg)
	l.monitor.RecordError(code, health.SeverityCritical, component, nil, msg, now)
}
