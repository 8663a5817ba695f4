package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

// MockLogger implements domain.Logger and records every entry
type MockLogger struct {
	logEntries []LogEntry
	mu         sync.RWMutex

	// Metrics
	InfoCount  int64
	WarnCount  int64
	ErrorCount int64
	DebugCount int64
}

// LogEntry is one recorded log call
type LogEntry struct {
	Level     string
	Message   string
	Fields    map[string]interface{}
	Timestamp time.Time
}

// NewMockLogger creates a new mock logger
func NewMockLogger() *MockLogger {
	return &MockLogger{
		logEntries: make([]LogEntry, 0),
	}
}

// Info implements domain.Logger
func (m *MockLogger) Info(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.InfoCount, 1)
	m.addLogEntry("INFO", msg, fields...)
}

// Warn implements domain.Logger
func (m *MockLogger) Warn(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.WarnCount, 1)
	m.addLogEntry("WARN", msg, fields...)
}

// Error implements domain.Logger
func (m *MockLogger) Error(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.ErrorCount, 1)
	m.addLogEntry("ERROR", msg, fields...)
}

// Debug implements domain.Logger
func (m *MockLogger) Debug(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.DebugCount, 1)
	m.addLogEntry("DEBUG", msg, fields...)
}

// Fatal implements domain.Logger. It records the entry but does not exit.
func (m *MockLogger) Fatal(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.ErrorCount, 1)
	m.addLogEntry("FATAL", msg, fields...)
}

// With implements domain.Logger
func (m *MockLogger) With(fields ...any) domain.Logger {
	return m
}

func (m *MockLogger) addLogEntry(level, msg string, fields ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fieldMap := make(map[string]interface{})
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			fieldMap[key] = fields[i+1]
		}
	}

	m.logEntries = append(m.logEntries, LogEntry{
		Level:     level,
		Message:   msg,
		Fields:    fieldMap,
		Timestamp: time.Now(),
	})
}

// GetLogEntries returns all log entries for testing
func (m *MockLogger) GetLogEntries() []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LogEntry, len(m.logEntries))
	copy(out, m.logEntries)
	return out
}

// GetLogEntriesByLevel returns log entries of one level
func (m *MockLogger) GetLogEntriesByLevel(level string) []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []LogEntry
	for _, e := range m.logEntries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears recorded entries and counters
func (m *MockLogger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logEntries = m.logEntries[:0]
	atomic.StoreInt64(&m.InfoCount, 0)
	atomic.StoreInt64(&m.WarnCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.DebugCount, 0)
}
