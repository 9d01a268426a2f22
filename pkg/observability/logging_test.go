package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingHooks_DidBuild(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	hooks := observability.LoggingHooks(logger)

	hooks.OnDidBuild(context.Background(), &domain.BuildEvent{
		Generation: 7,
		Trigger:    domain.TriggerPropsUpdate,
		Nodes:      4,
		Diff:       &domain.TreeDiff{Generation: 7, Disposed: []domain.HandleID{1, 2}},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "did_build", line["msg"])
	assert.Equal(t, 7.0, line["generation"])
	assert.Equal(t, "props_update", line["trigger"])
	assert.Equal(t, 2.0, line["disposed"])
}

func TestLoggingHooks_NodeEventsAreDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	hooks := observability.LoggingHooks(logger)

	hooks.OnNodeReuse(context.Background(), &domain.NodeEvent{TypeName: "Counter"})
	assert.Empty(t, buf.String())
}
