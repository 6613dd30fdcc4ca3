package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sicko7947/flowgraph"
	"github.com/sicko7947/flowgraph/builder"
	"github.com/sicko7947/flowgraph/engine"
	"github.com/sicko7947/flowgraph/nodes"
	"github.com/sicko7947/flowgraph/store"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()

	graph, err := builder.NewGraph("echo", "Echo Pipeline").
		AddNodes(
			nodes.NewPassthrough("receive", "Receive"),
			nodes.NewFunc("annotate", "Annotate",
				func(_ context.Context, s flowgraph.WorkflowState) (flowgraph.WorkflowState, error) {
					return s.WithData("annotated", true), nil
				}),
		).
		AddEdge("receive", "annotate").
		Build()
	require.NoError(t, err)

	st := store.NewMemoryStore()
	executor := engine.NewExecutor(st, engine.WithLogger(zerolog.Nop()))
	srv := New(executor, st)
	srv.RegisterGraph(graph)
	return srv, st
}

func postExecution(t *testing.T, srv *Server, graphID string, body map[string]any) executeResponse {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/graphs/"+graphID+"/executions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out executeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_ExecuteGraph(t *testing.T) {
	srv, _ := newTestServer(t)

	out := postExecution(t, srv, "echo", map[string]any{
		"threadId": "thread-1",
		"data":     map[string]any{"text": "hello"},
	})

	assert.NotEmpty(t, out.ExecutionID)
	assert.Empty(t, out.Error)
	assert.Equal(t, flowgraph.StatusCompleted, out.FinalState.Status)
	assert.Equal(t, 2, out.FinalState.Step)
	assert.Equal(t, true, out.FinalState.Data["annotated"])
}

func TestServer_ExecuteGraph_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/graphs/missing/executions", nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_GetState(t *testing.T) {
	srv, st := newTestServer(t)

	state := flowgraph.NewWorkflowState("echo", "thread-1")
	require.NoError(t, st.Save(context.Background(), state))

	req := httptest.NewRequest(http.MethodGet, "/states/"+state.ID, nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got flowgraph.WorkflowState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, state.ID, got.ID)
}

func TestServer_GetState_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/states/missing", nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ListStatesByWorkflowAndThread(t *testing.T) {
	srv, _ := newTestServer(t)

	postExecution(t, srv, "echo", map[string]any{"threadId": "thread-list"})

	req := httptest.NewRequest(http.MethodGet, "/workflows/echo/states", nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var byWorkflow []flowgraph.WorkflowState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&byWorkflow))
	// initial + two node commits + final status update
	assert.Len(t, byWorkflow, 4)

	req = httptest.NewRequest(http.MethodGet, "/threads/thread-list/states", nil)
	resp, err = srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var byThread []flowgraph.WorkflowState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&byThread))
	assert.Len(t, byThread, 4)
}

func TestServer_Trace(t *testing.T) {
	srv, _ := newTestServer(t)

	out := postExecution(t, srv, "echo", map[string]any{})

	req := httptest.NewRequest(http.MethodGet, "/executions/"+out.ExecutionID+"/trace", nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tr traceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	assert.True(t, tr.Completed)
	assert.True(t, tr.Healthy)
	assert.Equal(t, []string{"receive", "annotate"}, tr.Path)
	assert.Empty(t, tr.Errors)
}

func TestServer_Trace_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/executions/missing/trace", nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ExportFormats(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/graphs/echo/export", nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/graphs/echo/export?format=mermaid", nil)
	resp, err = srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/graphs/echo/export?format=bogus", nil)
	resp, err = srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
