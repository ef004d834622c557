package audit

import "fmt"

// Writer defines the interface for audit log writers.
//
// Implementations MUST:
//   - Return an error if the write fails (audit fails = operation fails)
//   - Sync to persistent storage before returning from Write
//   - Set the hash chain (HashPrev, Hash)
//   - Never write sensitive data (keys, passwords)
type Writer interface {
	// Write validates, chains and persists an event.
	Write(event *Event) error

	// Close flushes any pending writes and closes the writer.
	Close() error

	// LastHash returns the hash of the last written event, or GenesisHash.
	LastHash() string
}

// NopWriter discards all events. Used when no audit log is configured.
type NopWriter struct{}

var _ Writer = (*NopWriter)(nil)

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }

// MemoryWriter keeps chained events in memory.
type MemoryWriter struct {
	Events   []*Event
	lastHash string
}

var _ Writer = (*MemoryWriter)(nil)

// NewMemoryWriter creates an empty in-memory writer.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{lastHash: GenesisHash}
}

func (m *MemoryWriter) Write(event *Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid audit event: %w", err)
	}
	if err := chain(event, m.lastHash); err != nil {
		return err
	}
	m.Events = append(m.Events, event)
	m.lastHash = event.Hash
	return nil
}

func (m *MemoryWriter) Close() error     { return nil }
func (m *MemoryWriter) LastHash() string { return m.lastHash }
