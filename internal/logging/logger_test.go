package logging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type testWriteSyncer struct {
	data []byte
}

func (w *testWriteSyncer) Write(b []byte) (int, error) {
	w.data = append(w.data, b...)
	return len(b), nil
}

func (*testWriteSyncer) Sync() error {
	return nil
}

func TestU_Level(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, Level(0))
	assert.Equal(t, zapcore.InfoLevel, Level(1))
	assert.Equal(t, zapcore.DebugLevel, Level(2))
	assert.Equal(t, zapcore.DebugLevel, Level(7))
	assert.Equal(t, zapcore.WarnLevel, Level(-3))
}

func TestU_New_JSON(t *testing.T) {
	w := &testWriteSyncer{}
	logger := New(1, false, w)

	logger.Debug("hidden")
	logger.Info("key generated", zap.String("algorithm", "ECDSA P-256 + SHA256"))

	m := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.data, &m), string(w.data))
	assert.Equal(t, "key generated", m["msg"])
	assert.Equal(t, "info", m["level"])
	assert.Equal(t, "ECDSA P-256 + SHA256", m["algorithm"])
}

func TestU_Replace(t *testing.T) {
	prev := L
	defer Replace(prev)

	w := &testWriteSyncer{}
	Replace(New(0, false, w))
	S.Infow("below threshold")
	assert.Empty(t, w.data)
	S.Warnw("weak key", "bits", 1024)
	assert.Contains(t, string(w.data), "weak key")
}
