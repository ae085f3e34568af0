package orchestration

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "User"
	RoleAgent = "Agent"
)

// Segment is one flushed turn.
type Segment struct {
	ID        uuid.UUID
	Input     string
	Output    string
	CreatedAt time.Time
}

// String renders the segment as role-prefixed lines, omitting empty sides.
func (s Segment) String() string {
	var b strings.Builder
	if s.Input != "" {
		b.WriteString(RoleUser + ": " + s.Input + "\n")
	}
	if s.Output != "" {
		b.WriteString(RoleAgent + ": " + s.Output + "\n")
	}
	return b.String()
}

// TranscriptLog is the append-only conversation record. It may start from a
// transcript carried over from an earlier session.
type TranscriptLog struct {
	mu       sync.RWMutex
	text     strings.Builder
	segments []Segment
}

func NewTranscriptLog(prior string) *TranscriptLog {
	log := &TranscriptLog{}
	log.text.WriteString(prior)
	return log
}

func (l *TranscriptLog) Append(segment Segment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text.WriteString(segment.String())
	l.segments = append(l.segments, segment)
}

func (l *TranscriptLog) String() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.text.String()
}

// Segments returns the restored segments followed by those appended since.
// Prior text given without segments is not represented here.
func (l *TranscriptLog) Segments() []Segment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Segment(nil), l.segments...)
}

func (l *TranscriptLog) Reset(prior string) {
	l.Restore(prior, nil)
}

// Restore replaces the log with a stored conversation: its rendered text and
// the segments it was built from.
func (l *TranscriptLog) Restore(prior string, segments []Segment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text.Reset()
	l.text.WriteString(prior)
	l.segments = append([]Segment(nil), segments...)
}
