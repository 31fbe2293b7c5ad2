package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"cloud.google.com/go/logging"
	"github.com/andywolf/armsignoff/internal/security"
	"google.golang.org/api/option"
)

// Severity levels for structured logs
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Logger is the structured logger used by the controller and CLI.
type Logger interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
	LogWithLabels(severity Severity, msg string, labels map[string]string)
	Flush() error
	Close() error
}

// CloudLogger writes entries to Google Cloud Logging.
type CloudLogger struct {
	client *logging.Client
	logger *logging.Logger
}

// NewCloudLogger creates a Cloud Logging logger for projectID/logID. labels
// are attached to every entry.
func NewCloudLogger(ctx context.Context, projectID, logID string, labels map[string]string, opts ...option.ClientOption) (*CloudLogger, error) {
	client, err := logging.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging client: %w", err)
	}

	return &CloudLogger{
		client: client,
		logger: client.Logger(logID, logging.CommonLabels(labels)),
	}, nil
}

func (cl *CloudLogger) log(severity Severity, msg string, labels map[string]string) {
	cl.logger.Log(logging.Entry{
		Severity: logging.ParseSeverity(string(severity)),
		Payload:  msg,
		Labels:   labels,
	})
}

// Info logs at INFO severity
func (cl *CloudLogger) Info(msg string) { cl.log(SeverityInfo, msg, nil) }

// Warning logs at WARNING severity
func (cl *CloudLogger) Warning(msg string) { cl.log(SeverityWarning, msg, nil) }

// Error logs at ERROR severity
func (cl *CloudLogger) Error(msg string) { cl.log(SeverityError, msg, nil) }

// LogWithLabels logs with extra per-entry labels
func (cl *CloudLogger) LogWithLabels(severity Severity, msg string, labels map[string]string) {
	cl.log(severity, msg, labels)
}

// Flush sends buffered entries
func (cl *CloudLogger) Flush() error {
	return cl.logger.Flush()
}

// Close flushes and closes the client
func (cl *CloudLogger) Close() error {
	return cl.client.Close()
}

// LogEntry is one JSON line written by JSONLogger.
type LogEntry struct {
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// JSONLogger writes one JSON object per line. The layout matches what the
// Cloud Logging agent parses from stdout/stderr.
type JSONLogger struct {
	mu     sync.Mutex
	writer io.Writer
	labels map[string]string
	now    func() time.Time
}

// NewJSONLogger creates a logger writing to w with common labels.
func NewJSONLogger(w io.Writer, labels map[string]string) *JSONLogger {
	return &JSONLogger{writer: w, labels: labels, now: time.Now}
}

func (jl *JSONLogger) log(severity Severity, msg string, extra map[string]string) {
	labels := make(map[string]string, len(jl.labels)+len(extra))
	for k, v := range jl.labels {
		labels[k] = v
	}
	for k, v := range extra {
		labels[k] = v
	}

	data, err := json.Marshal(LogEntry{
		Severity:  severity,
		Message:   msg,
		Timestamp: jl.now().UTC(),
		Labels:    labels,
	})

	jl.mu.Lock()
	defer jl.mu.Unlock()
	if err != nil {
		fmt.Fprintf(jl.writer, `{"severity":"ERROR","message":"failed to marshal log entry: %v"}`+"\n", err)
		return
	}
	fmt.Fprintf(jl.writer, "%s\n", data)
}

// Info logs at INFO severity
func (jl *JSONLogger) Info(msg string) { jl.log(SeverityInfo, msg, nil) }

// Warning logs at WARNING severity
func (jl *JSONLogger) Warning(msg string) { jl.log(SeverityWarning, msg, nil) }

// Error logs at ERROR severity
func (jl *JSONLogger) Error(msg string) { jl.log(SeverityError, msg, nil) }

// LogWithLabels logs with extra per-entry labels
func (jl *JSONLogger) LogWithLabels(severity Severity, msg string, labels map[string]string) {
	jl.log(severity, msg, labels)
}

// Flush is a no-op; writes are synchronous
func (jl *JSONLogger) Flush() error { return nil }

// Close is a no-op
func (jl *JSONLogger) Close() error { return nil }

// SecureLogger scrubs credentials from every message and label before
// passing it on.
type SecureLogger struct {
	next     Logger
	scrubber *security.Scrubber
}

// NewSecureLogger wraps next with scrubbing.
func NewSecureLogger(next Logger) *SecureLogger {
	return &SecureLogger{next: next, scrubber: security.NewScrubber()}
}

// Info logs a scrubbed message at INFO severity
func (sl *SecureLogger) Info(msg string) { sl.next.Info(sl.scrubber.Scrub(msg)) }

// Warning logs a scrubbed message at WARNING severity
func (sl *SecureLogger) Warning(msg string) { sl.next.Warning(sl.scrubber.Scrub(msg)) }

// Error logs a scrubbed message at ERROR severity
func (sl *SecureLogger) Error(msg string) { sl.next.Error(sl.scrubber.Scrub(msg)) }

// LogWithLabels logs a scrubbed message with scrubbed labels
func (sl *SecureLogger) LogWithLabels(severity Severity, msg string, labels map[string]string) {
	sl.next.LogWithLabels(severity, sl.scrubber.Scrub(msg), sl.scrubber.ScrubMap(labels))
}

// Flush flushes the wrapped logger
func (sl *SecureLogger) Flush() error { return sl.next.Flush() }

// Close closes the wrapped logger
func (sl *SecureLogger) Close() error { return sl.next.Close() }

// NewLogger returns a scrubbing Cloud Logging logger when projectID is set,
// otherwise a scrubbing JSON logger on fallback.
func NewLogger(ctx context.Context, projectID, logID string, labels map[string]string, fallback io.Writer) (Logger, error) {
	if projectID == "" {
		return NewSecureLogger(NewJSONLogger(fallback, labels)), nil
	}

	cl, err := NewCloudLogger(ctx, projectID, logID, labels)
	if err != nil {
		return nil, err
	}
	return NewSecureLogger(cl), nil
}

var (
	_ Logger = (*CloudLogger)(nil)
	_ Logger = (*JSONLogger)(nil)
	_ Logger = (*SecureLogger)(nil)
)
