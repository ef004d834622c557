// Package audit records certificate generation events in a tamper-evident log.
//
// Audit logs are separate from technical logs:
//   - Audit failure = Operation failure
//   - Never log secrets (private keys, passwords)
//   - All timestamps in UTC
//   - Events are hash chained for integrity verification
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of audit event.
type EventType string

const (
	EventKeyGenerated     EventType = "KEY_GENERATED"
	EventCSRCreated       EventType = "CSR_CREATED"
	EventCertSelfSigned   EventType = "CERT_SELF_SIGNED"
	EventArtifactExported EventType = "ARTIFACT_EXPORTED"
)

// Result represents the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor represents who performed the action.
type Actor struct {
	Type string `json:"type"`           // "user"
	ID   string `json:"id"`             // username
	Host string `json:"host,omitempty"` // hostname where action occurred
}

// Object represents what was produced.
type Object struct {
	Type    string `json:"type"`              // "key", "csr", "certificate", "file"
	Serial  string `json:"serial,omitempty"`  // certificate serial number, hex
	Subject string `json:"subject,omitempty"` // subject DN
	Path    string `json:"path,omitempty"`    // destination file
}

// Context provides additional details about the operation.
type Context struct {
	Profile   string   `json:"profile,omitempty"`
	Algorithm string   `json:"algorithm,omitempty"`
	DNSNames  []string `json:"dns_names,omitempty"`
	NotAfter  string   `json:"not_after,omitempty"`
	Format    string   `json:"format,omitempty"`    // "pem" or "pkcs12"
	Encrypted bool     `json:"encrypted,omitempty"` // private key protected by a password
	PBE       string   `json:"pbe,omitempty"`       // key encryption parameters
	Reason    string   `json:"reason,omitempty"`    // failure reason
}

// Event represents a single audit log entry.
type Event struct {
	ID        string    `json:"id"`
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context,omitempty"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"` // hash of previous event
	Hash      string    `json:"hash"`      // hash of this event
}

// NewEvent creates a new audit event with a fresh ID, the current time and
// the local user as actor.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows
	}
	if username == "" {
		username = "unknown"
	}

	return &Event{
		ID:        uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor: Actor{
			Type: "user",
			ID:   username,
			Host: hostname,
		},
		Result: result,
	}
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("id must be a UUID: %w", err)
	}
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if e.Actor.Type == "" || e.Actor.ID == "" {
		return fmt.Errorf("actor type and id are required")
	}
	if e.Result == "" {
		return fmt.Errorf("result is required")
	}
	return nil
}

// CanonicalJSON returns the event without its Hash, for hashing.
func (e *Event) CanonicalJSON() ([]byte, error) {
	canonical := *e
	canonical.Hash = ""
	type eventForHash Event
	return json.Marshal(struct {
		eventForHash
		Hash string `json:"hash,omitempty"`
	}{eventForHash: eventForHash(canonical)})
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
