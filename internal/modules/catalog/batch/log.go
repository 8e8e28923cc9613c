package batch

import (
	"fmt"
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarn    Level = "warn"
)

// Entry is one operator-facing log line of a batch run.
type Entry struct {
	Time      time.Time `json:"-"`
	Timestamp string    `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// String renders the entry as "[15:04:05] message".
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Timestamp, e.Message)
}

// Sink receives entries as they are appended.
type Sink func(Entry)

type RunLog struct {
	mu      sync.Mutex
	entries []Entry
	sink    Sink
	now     func() time.Time
}

func NewRunLog(sink Sink) *RunLog {
	return &RunLog{sink: sink, now: time.Now}
}

func (l *RunLog) Add(level Level, format string, args ...any) Entry {
	t := l.now()
	e := Entry{
		Time:      t,
		Timestamp: t.Format("15:04:05"),
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	if l.sink != nil {
		l.sink(e)
	}
	return e
}

func (l *RunLog) Info(format string, args ...any)    { l.Add(LevelInfo, format, args...) }
func (l *RunLog) Success(format string, args ...any) { l.Add(LevelSuccess, format, args...) }
func (l *RunLog) Error(format string, args ...any)   { l.Add(LevelError, format, args...) }
func (l *RunLog) Warn(format string, args ...any)    { l.Add(LevelWarn, format, args...) }

// Entries returns a copy of the log so far.
func (l *RunLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Lines renders every entry with its timestamp.
func (l *RunLog) Lines() []string {
	entries := l.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}
