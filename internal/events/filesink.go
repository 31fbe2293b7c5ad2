package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andywolf/armsignoff/internal/signoff"
)

// FileSink appends DecisionEvents to a JSONL journal.
// It is safe for concurrent use from multiple goroutines.
type FileSink struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// DefaultFilename is the journal filename inside the journal directory.
const DefaultFilename = "decisions.jsonl"

// NewFileSink opens dir/decisions.jsonl for appending, creating dir and the
// file as needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	path := filepath.Join(dir, DefaultFilename)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &FileSink{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Write appends events, one JSON object per line, and flushes.
func (s *FileSink) Write(events []DecisionEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("journal is closed")
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		if _, err := s.writer.Write(data); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
		if err := s.writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush events: %w", err)
	}

	return nil
}

// WriteOne appends a single event.
func (s *FileSink) WriteOne(event DecisionEvent) error {
	return s.Write([]DecisionEvent{event})
}

// Flush flushes any buffered data to the underlying file.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return nil
}

// Close flushes any remaining data and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	if err := s.writer.Flush(); err != nil {
		_ = s.file.Close()
		s.file = nil
		return fmt.Errorf("failed to flush before close: %w", err)
	}

	if err := s.file.Close(); err != nil {
		s.file = nil
		return fmt.Errorf("failed to close journal file: %w", err)
	}

	s.file = nil
	return nil
}

// Path returns the journal file path.
func (s *FileSink) Path() string {
	return s.path
}

// ReadEvents reads every event from a journal file.
func ReadEvents(path string) ([]DecisionEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var events []DecisionEvent
	scanner := bufio.NewScanner(file)

	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event DecisionEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse event on line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}

	return events, nil
}

// FilterByPullRequest returns the events for one pull request.
// An empty repo matches any repository.
func FilterByPullRequest(events []DecisionEvent, repo string, issueNumber int) []DecisionEvent {
	var filtered []DecisionEvent
	for _, event := range events {
		if event.IssueNumber != issueNumber {
			continue
		}
		if repo != "" && event.Repo != repo {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered
}

// Latest returns the most recent event, or false when events is empty.
func Latest(events []DecisionEvent) (DecisionEvent, bool) {
	return signoff.Latest(events, func(e DecisionEvent) time.Time { return e.Timestamp })
}
