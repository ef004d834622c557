package certgen

import (
	"errors"
	"fmt"

	"github.com/remiblancher/certgen/internal/crypto"
)

// Error is a pipeline failure with the stage it happened in.
// It supports errors.Is() and errors.As().
type Error struct {
	Op  string // "validate", "generate-key", "sign", "export", "write", "audit"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("certgen %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Err }

// Sentinel errors. Use errors.Is() to classify a pipeline failure.
// Write failures carry the underlying I/O error instead.
var (
	// ErrUnsupportedAlgorithm is raised before key generation.
	ErrUnsupportedAlgorithm = crypto.ErrUnsupportedAlgorithm

	// ErrConfiguration is raised before signing.
	ErrConfiguration = errors.New("configuration error")

	// ErrExport is raised before the destination is written.
	ErrExport = errors.New("export failed")
)

func configurationError(op string, err error) *Error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrConfiguration, err)}
}

func exportError(err error) *Error {
	return &Error{Op: "export", Err: fmt.Errorf("%w: %w", ErrExport, err)}
}
