package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_StandardKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo)

	logger.Info("disposed", KeyHandle, domain.HandleID(7), "error", errors.New("gone"))
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "handle=h7")
	assert.Contains(t, out, "err=gone")
	assert.NotContains(t, out, "error=")
	assert.NotContains(t, out, "hidden")
}

func TestNewNop(t *testing.T) {
	assert.False(t, NewNop().Enabled(context.Background(), slog.LevelError))
}
