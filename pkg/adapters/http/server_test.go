package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterPos = domain.Position("/Root@0/Counter#c")

func newEngine(t *testing.T, opts ...arbor.Option) *arbor.Engine {
	t.Helper()
	eng := arbor.New(append([]arbor.Option{arbor.WithRootID("http-test")}, opts...)...)
	eng.SetRoot(dsl.Provider(func() *dsl.NodeBuilder {
		return dsl.Node("Root").Child(
			dsl.Node("Counter").Key("c").State(state.Declare(0)),
			dsl.Node("Label"),
		)
	}))
	require.NoError(t, eng.Flush(context.Background()))
	return eng
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetTree(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, http.MethodGet, "/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp TreeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "http-test", resp.RootID)
	assert.Equal(t, uint64(1), resp.Generation)
	assert.Equal(t, domain.TriggerInitial, resp.Trigger)
	assert.Equal(t, 3, resp.Nodes)
	require.NotNil(t, resp.Root)
	assert.Len(t, resp.Root.Children, 2)
}

func TestGetTree_BeforeFirstBuild(t *testing.T) {
	h := NewHandler(arbor.New())
	w := do(t, h, http.MethodGet, "/tree", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetNode(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, http.MethodGet, "/tree/Root@0/Label@0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var node domain.ComponentNode
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &node))
	assert.Equal(t, "Label", node.TypeName)

	w = do(t, h, http.MethodGet, "/tree/Root@0/Nope@0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostState_AppliedOnNextFlush(t *testing.T) {
	eng := newEngine(t)
	h := NewHandler(eng)

	w := do(t, h, http.MethodPost, "/state", WriteRequest{Position: counterPos, Value: 7})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.NoError(t, eng.Flush(context.Background()))

	w = do(t, h, http.MethodGet, "/states", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []state.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, counterPos, entries[0].Position)
	// Stored as an int by the cell; JSON hands it back as float64.
	assert.Equal(t, 7.0, entries[0].Value)
}

func TestPostState_Errors(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/state", WriteRequest{Position: "/Root@0/Missing@0", Value: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/state", WriteRequest{Position: "/Root@0/Label@0", Value: 1})
	assert.Equal(t, http.StatusNotFound, w.Code, "stateless components cannot be written")

	w = do(t, h, http.MethodPost, "/state", WriteRequest{Value: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/state", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostRebuild(t *testing.T) {
	eng := newEngine(t)
	h := NewHandler(eng)

	w := do(t, h, http.MethodPost, "/rebuild", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.NoError(t, eng.Flush(context.Background()))
	assert.Equal(t, domain.TriggerPropsUpdate, eng.Current().Trigger)
}

func TestHealthAndInfo(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)

	w = do(t, h, http.MethodGet, "/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), arbor.Version)

	w = do(t, h, http.MethodOptions, "/state", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("arbor", reg)
	eng := newEngine(t, arbor.WithLifecycleHooks(metrics.Hooks()))

	h := NewHandler(eng, WithMetrics(reg))
	w := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `arbor_builds_total{outcome="committed",trigger="initial"} 1`)

	w = do(t, NewHandler(eng), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "metrics are opt-in")
}

func TestSubscribeEvents(t *testing.T) {
	srv := NewServer(nil)
	eng := newEngine(t, arbor.WithLifecycleHooks(srv.Hooks()))
	srv.Engine = eng
	h := srv.Handler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events?watch=unmounted", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(w, req)
	}()

	require.Eventually(t, func() bool { return srv.Streams.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	// Nothing unmounts: filtered out.
	eng.Invalidate()
	require.NoError(t, eng.Flush(ctx))

	// Writing a new root drops the label.
	eng.SetRoot(dsl.Static(dsl.Node("Root").Child(dsl.Node("Counter").Key("c").State(state.Declare(0)))))
	require.NoError(t, eng.Flush(ctx))

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	out := w.Body.String()
	assert.Contains(t, out, "event: ping")
	assert.NotContains(t, out, `"generation":2`)
	assert.Contains(t, out, `"generation":3`)
	assert.Contains(t, out, `"unmounted":["/Root@0/Label@0"]`)
}
