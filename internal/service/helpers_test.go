package service

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"
)

var errTimeout = errors.New("context deadline exceeded")

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// memoryAudit collects audit entries for assertions.
type memoryAudit struct {
	entries []AuditEntry
	err     error
}

func (m *memoryAudit) Record(ctx context.Context, entry AuditEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryAudit) actions() []string {
	actions := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func (m *memoryAudit) has(action string) bool {
	for _, entry := range m.entries {
		if entry.Action == action {
			return true
		}
	}
	return false
}
