// Package server exposes graph execution and state introspection over
// HTTP. Caller authentication is out of scope.
package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v3"

	"github.com/sicko7947/flowgraph"
	"github.com/sicko7947/flowgraph/engine"
	"github.com/sicko7947/flowgraph/trace"
	"github.com/sicko7947/flowgraph/viz"
)

// Server wires the executor, the state store and the registered graphs
// behind a fiber app
type Server struct {
	app      *fiber.App
	executor *engine.Executor
	store    flowgraph.StateStore

	mu     sync.RWMutex
	graphs map[string]*flowgraph.GraphDefinition
	traces map[string]*trace.RunTrace
}

// New creates a server around an executor and its state store
func New(executor *engine.Executor, store flowgraph.StateStore) *Server {
	s := &Server{
		app:      fiber.New(),
		executor: executor,
		store:    store,
		graphs:   make(map[string]*flowgraph.GraphDefinition),
		traces:   make(map[string]*trace.RunTrace),
	}
	s.routes()
	return s
}

// RegisterGraph makes a graph executable over the API
func (s *Server) RegisterGraph(g *flowgraph.GraphDefinition) {
	s.mu.Lock()
	s.graphs[g.ID()] = g
	s.mu.Unlock()
}

// App returns the underlying fiber app (used by tests)
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves the API on the given address
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) routes() {
	s.app.Post("/graphs/:id/executions", s.handleExecute)
	s.app.Get("/graphs/:id/export", s.handleExport)
	s.app.Get("/states/:id", s.handleGetState)
	s.app.Get("/workflows/:id/states", s.handleListByWorkflow)
	s.app.Get("/threads/:id/states", s.handleListByThread)
	s.app.Get("/executions/:id/trace", s.handleTrace)
}

type executeRequest struct {
	ThreadID string         `json:"threadId"`
	Data     map[string]any `json:"data"`
}

type executeResponse struct {
	ExecutionID string                  `json:"executionId"`
	FinalState  flowgraph.WorkflowState `json:"finalState"`
	Error       string                  `json:"error,omitempty"`
}

func (s *Server) handleExecute(c fiber.Ctx) error {
	graphID := c.Params("id")
	s.mu.RLock()
	graph, ok := s.graphs[graphID]
	s.mu.RUnlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "graph not found"})
	}

	var body executeRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	initial := flowgraph.NewWorkflowState(graphID, body.ThreadID)
	for k, v := range body.Data {
		initial = initial.WithData(k, v)
	}

	req := engine.ExecutionRequest{
		WorkflowID:   graphID,
		ThreadID:     body.ThreadID,
		Graph:        graph,
		InitialState: &initial,
	}
	events, err := s.executor.Execute(c.Context(), req)
	if err != nil {
		var vErr *flowgraph.ValidationError
		if errors.As(err, &vErr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": vErr.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	t := trace.Collect("", graphID, events)
	if len(t.Events) == 0 {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "execution produced no events"})
	}
	last := t.Events[len(t.Events)-1]
	resp := executeResponse{
		ExecutionID: t.Events[0].Meta().ExecutionID,
		FinalState:  last.Meta().State,
	}
	t.ExecutionID = resp.ExecutionID
	if failed, ok := last.(flowgraph.WorkflowFailedEvent); ok {
		resp.Error = failed.Error
	}

	s.mu.Lock()
	s.traces[resp.ExecutionID] = t
	s.mu.Unlock()

	return c.JSON(resp)
}

func (s *Server) handleExport(c fiber.Ctx) error {
	graphID := c.Params("id")
	s.mu.RLock()
	graph, ok := s.graphs[graphID]
	s.mu.RUnlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "graph not found"})
	}

	switch c.Query("format", "dot") {
	case "mermaid":
		return c.SendString(viz.Mermaid(graph))
	case "dot":
		return c.SendString(viz.DOT(graph))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown format"})
	}
}

func (s *Server) handleGetState(c fiber.Ctx) error {
	state, err := s.store.Get(c.Context(), c.Params("id"))
	if errors.Is(err, flowgraph.ErrStateNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "state not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(state)
}

func (s *Server) handleListByWorkflow(c fiber.Ctx) error {
	fmt.Println("DEBUG param id=", c.Params("id"))
	states, err := s.store.ListByWorkflow(c.Context(), c.Params("id"))
	fmt.Println("DEBUG states len", len(states), err)
	fmt.Printf("DEBUG store ptr %p\n", s.store)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(states)
}

func (s *Server) handleListByThread(c fiber.Ctx) error {
	states, err := s.store.ListByThread(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(states)
}

type traceResponse struct {
	ExecutionID string                `json:"executionId"`
	Completed   bool                  `json:"completed"`
	Healthy     bool                  `json:"healthy"`
	DurationMs  int64                 `json:"durationMs"`
	Path        []string              `json:"path"`
	Errors      []trace.NodeErrorView `json:"errors,omitempty"`
	Stats       trace.Stats           `json:"stats"`
}

func (s *Server) handleTrace(c fiber.Ctx) error {
	s.mu.RLock()
	t, ok := s.traces[c.Params("id")]
	s.mu.RUnlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "trace not found"})
	}

	analyzer := trace.NewAnalyzer(t)
	return c.JSON(traceResponse{
		ExecutionID: t.ExecutionID,
		Completed:   t.IsCompleted(),
		Healthy:     analyzer.IsHealthy(),
		DurationMs:  t.Duration().Milliseconds(),
		Path:        analyzer.ExecutionPath(),
		Errors:      t.Errors(),
		Stats:       analyzer.Stats(),
	})
}
