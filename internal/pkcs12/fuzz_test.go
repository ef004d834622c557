package pkcs12

import (
	"testing"
)

// =============================================================================
// PFX Parsing Fuzz Tests
// =============================================================================

// FuzzInspect tests that walking an arbitrary PFX never panics.
func FuzzInspect(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x30, 0x00})
	f.Add([]byte{0x30, 0x03, 0x02, 0x01, 0x03})
	f.Add([]byte{0x30, 0x80, 0x02, 0x01, 0x03, 0x00, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic regardless of input
		_, _ = Inspect(data)
		_, _, _ = Decode(data, "")
	})
}
