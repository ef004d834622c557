package audit

import (
	"fmt"
	"sync"
)

var (
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex
	enabled      bool
)

// Init installs w as the global audit writer. A nil writer disables auditing.
func Init(w Writer) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		enabled = false
		return nil
	}
	globalWriter = w
	enabled = true
	return nil
}

// InitFile installs a FileWriter for path. An empty path disables auditing.
func InitFile(path string) error {
	if path == "" {
		return Init(nil)
	}
	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	return Init(w)
}

// Close closes the global audit writer and disables auditing.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := globalWriter.Close()
	globalWriter = NopWriter{}
	enabled = false
	return err
}

// Enabled returns whether audit logging is active.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return enabled
}

// Log writes an audit event to the global writer.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	return w.Write(event)
}

// MustLog writes an event and wraps any failure so the caller can fail
// the parent operation with it.
func MustLog(event *Event) error {
	if err := Log(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

func resultOf(err error) (Result, string) {
	if err != nil {
		return ResultFailure, err.Error()
	}
	return ResultSuccess, ""
}

// LogKeyGenerated records a key pair generation.
func LogKeyGenerated(algorithm string, cause error) error {
	result, reason := resultOf(cause)
	event := NewEvent(EventKeyGenerated, result).
		WithObject(Object{Type: "key"}).
		WithContext(Context{Algorithm: algorithm, Reason: reason})
	return MustLog(event)
}

// LogCSRCreated records a signed certificate request.
func LogCSRCreated(subject, profile, algorithm string, dnsNames []string, cause error) error {
	result, reason := resultOf(cause)
	event := NewEvent(EventCSRCreated, result).
		WithObject(Object{Type: "csr", Subject: subject}).
		WithContext(Context{
			Profile:   profile,
			Algorithm: algorithm,
			DNSNames:  dnsNames,
			Reason:    reason,
		})
	return MustLog(event)
}

// LogCertSelfSigned records a self-signed certificate.
func LogCertSelfSigned(serial, subject, profile, algorithm, notAfter string, dnsNames []string, cause error) error {
	result, reason := resultOf(cause)
	event := NewEvent(EventCertSelfSigned, result).
		WithObject(Object{Type: "certificate", Serial: serial, Subject: subject}).
		WithContext(Context{
			Profile:   profile,
			Algorithm: algorithm,
			DNSNames:  dnsNames,
			NotAfter:  notAfter,
			Reason:    reason,
		})
	return MustLog(event)
}

// LogArtifactExported records an artifact written to path. pbe describes the
// key encryption parameters and is empty when no password was set.
func LogArtifactExported(path, subject, format string, encrypted bool, pbe string, cause error) error {
	result, reason := resultOf(cause)
	event := NewEvent(EventArtifactExported, result).
		WithObject(Object{Type: "file", Subject: subject, Path: path}).
		WithContext(Context{
			Format:    format,
			Encrypted: encrypted,
			PBE:       pbe,
			Reason:    reason,
		})
	return MustLog(event)
}
