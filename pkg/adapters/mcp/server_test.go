package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *arbor.Engine {
	t.Helper()
	eng := arbor.New()
	eng.SetRoot(dsl.Provider(func() *dsl.NodeBuilder {
		return dsl.Node("Root").Child(dsl.Node("Title").Key("t").State(state.Declare("hello")))
	}))
	require.NoError(t, eng.Flush(context.Background()))
	return eng
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestInspectTree(t *testing.T) {
	s := NewServer(newEngine(t))
	ctx := context.Background()

	res, err := s.handleInspectTree(ctx, call(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var view TreeView
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &view))
	assert.Equal(t, uint64(1), view.Generation)
	assert.Equal(t, "Root", view.Root.TypeName)

	res, err = s.handleInspectTree(ctx, call(map[string]any{"position": "/Root@0/Title#t"}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), `"Title"`)

	res, err = s.handleInspectTree(ctx, call(map[string]any{"position": "/Root@0/Nope@0"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestInspectTree_BeforeBuild(t *testing.T) {
	s := NewServer(arbor.New())
	res, err := s.handleInspectTree(context.Background(), call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestWriteState(t *testing.T) {
	eng := newEngine(t)
	s := NewServer(eng)
	ctx := context.Background()

	res, err := s.handleWriteState(ctx, call(map[string]any{"position": "/Root@0/Title#t", "value": `"world"`}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	require.NoError(t, eng.Flush(ctx))
	require.Len(t, eng.States(), 1)
	assert.Equal(t, "world", eng.States()[0].Value)

	// Not JSON: sent as a plain string.
	res, err = s.handleWriteState(ctx, call(map[string]any{"position": "/Root@0/Title#t", "value": "plain words"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NoError(t, eng.Flush(ctx))
	assert.Equal(t, "plain words", eng.States()[0].Value)

	res, err = s.handleWriteState(ctx, call(map[string]any{"position": "/Root@0/Missing@0", "value": "1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleWriteState(ctx, call(map[string]any{"value": "1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "position is required")
}

func TestListStatesAndRebuild(t *testing.T) {
	eng := newEngine(t)
	s := NewServer(eng)
	ctx := context.Background()

	res, err := s.handleListStates(ctx, call(nil))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), `"hello"`)

	res, err = s.handleRebuild(ctx, call(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.NoError(t, eng.Flush(ctx))
	assert.Equal(t, domain.TriggerPropsUpdate, eng.Current().Trigger)
}

func TestReadTreeResource(t *testing.T) {
	s := NewServer(newEngine(t))

	contents, err := s.readTree(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	trc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, TreeURI, trc.URI)
	assert.Contains(t, trc.Text, `"generation":1`)
}
