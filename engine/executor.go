package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sicko7947/flowgraph"
)

const tracerName = "github.com/sicko7947/flowgraph/engine"

// Executor drives graph executions. It is safe for concurrent use;
// each Execute call runs an independent scheduling loop.
type Executor struct {
	store      flowgraph.StateStore
	logger     zerolog.Logger
	opts       flowgraph.ExecutionOptions
	bufferSize int
}

// Option configures the executor
type Option func(*Executor)

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithOptions sets the default execution options
func WithOptions(opts flowgraph.ExecutionOptions) Option {
	return func(e *Executor) {
		e.opts = opts
	}
}

// WithChannelBufferSize sets the event channel buffer size
func WithChannelBufferSize(size int) Option {
	return func(e *Executor) {
		if size > 0 {
			e.bufferSize = size
		}
	}
}

// NewExecutor creates an executor persisting snapshots to store.
// Without options it logs to stdout at Info level and uses
// DefaultExecutionOptions.
func NewExecutor(store flowgraph.StateStore, opts ...Option) *Executor {
	defaultLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)

	e := &Executor{
		store:      store,
		logger:     defaultLogger,
		opts:       flowgraph.DefaultExecutionOptions,
		bufferSize: 256,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutionRequest describes one run of one graph
type ExecutionRequest struct {
	ExecutionID  string
	WorkflowID   string
	ThreadID     string
	Graph        *flowgraph.GraphDefinition
	InitialState *flowgraph.WorkflowState
	Options      *flowgraph.ExecutionOptions
}

// Execute validates the request and starts the run, returning the
// event stream. Events are yielded as they are generated; the stream
// is finite and ends with exactly one terminal event, after which the
// channel is closed. The caller must drain the channel.
func (e *Executor) Execute(ctx context.Context, req ExecutionRequest) (<-chan flowgraph.StateEvent, error) {
	if req.Graph == nil {
		return nil, errors.New("execution request has no graph")
	}
	if problems := req.Graph.Validate(); len(problems) > 0 {
		return nil, flowgraph.NewValidationError(req.Graph.ID(), problems)
	}

	executionID := req.ExecutionID
	if executionID == "" {
		executionID = uuid.New().String()
	}
	workflowID := req.WorkflowID
	if workflowID == "" {
		workflowID = req.Graph.ID()
	}

	var initial flowgraph.WorkflowState
	if req.InitialState != nil {
		initial = *req.InitialState
	} else {
		initial = flowgraph.NewWorkflowState(workflowID, req.ThreadID)
	}
	if initial.WorkflowID == "" {
		initial.WorkflowID = workflowID
	}
	if initial.ThreadID == "" {
		initial.ThreadID = req.ThreadID
	}
	if initial.Data == nil {
		initial.Data = map[string]any{}
	}
	initial.Status = flowgraph.StatusRunning

	opts := e.opts
	if req.Options != nil {
		opts = *req.Options
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = flowgraph.DefaultExecutionOptions.MaxConcurrency
	}
	if opts.NodeTimeout <= 0 {
		opts.NodeTimeout = flowgraph.DefaultExecutionOptions.NodeTimeout
	}
	if opts.LLMNodeTimeout <= 0 {
		opts.LLMNodeTimeout = flowgraph.DefaultExecutionOptions.LLMNodeTimeout
	}

	pool, err := ants.NewPool(opts.MaxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	x := &execution{
		executionID: executionID,
		graph:       req.Graph,
		opts:        opts,
		store:       e.store,
		logger:      flowgraph.ExecutionLogger(e.logger, executionID, workflowID),
		emitter:     newEmitter(ctx, e.bufferSize),
		pool:        pool,
		permits:     make(chan struct{}, opts.MaxConcurrency),
		current:     initial,
		completed:   make(map[string]struct{}),
		done:        make(chan taskOutcome),
	}

	go x.run(ctx)

	return x.emitter.ch, nil
}

// Run executes the graph to completion, draining the event stream
// internally, and returns the final state carried on the terminal
// event. A failed run returns the final state together with an error.
func (e *Executor) Run(ctx context.Context, req ExecutionRequest) (flowgraph.WorkflowState, error) {
	ch, err := e.Execute(ctx, req)
	if err != nil {
		return flowgraph.WorkflowState{}, err
	}
	var last flowgraph.StateEvent
	for ev := range ch {
		last = ev
	}
	if last == nil {
		return flowgraph.WorkflowState{}, flowgraph.NewWorkflowError(
			flowgraph.ErrCodeInternalError, "event stream ended without a terminal event")
	}
	state := last.Meta().State
	if failed, ok := last.(flowgraph.WorkflowFailedEvent); ok {
		return state, flowgraph.NewWorkflowError(flowgraph.ErrCodeExecutionFailed, failed.Error)
	}
	return state, nil
}

// taskOutcome travels from a node task back to the scheduling loop
type taskOutcome struct {
	nodeID string
	ok     bool
	next   []string
}

// execution is the per-run scheduling state
type execution struct {
	executionID string
	graph       *flowgraph.GraphDefinition
	opts        flowgraph.ExecutionOptions
	store       flowgraph.StateStore
	logger      zerolog.Logger
	emitter     *emitter
	pool        *ants.Pool
	permits     chan struct{}

	stateMu sync.Mutex
	current flowgraph.WorkflowState

	completedMu sync.Mutex
	completed   map[string]struct{}

	errMu    sync.Mutex
	firstErr string

	done chan taskOutcome
}

// run is the main scheduling loop: drain the frontier under the
// concurrency cap, wait for any in-flight task, repeat until both are
// empty, then emit the terminal event.
func (x *execution) run(ctx context.Context) {
	defer x.pool.Release()
	defer x.emitter.close()

	m := engineMetrics()
	started := time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracer := otel.Tracer(tracerName)
	spanCtx, span := tracer.Start(runCtx, "execute_graph")
	defer span.End()
	span.SetAttributes(
		attribute.String("flowgraph.execution_id", x.executionID),
		attribute.String("flowgraph.graph_id", x.graph.ID()),
	)

	initial := x.snapshot()
	flowgraph.LogExecutionStarted(x.logger, x.executionID, initial.WorkflowID)
	if err := x.store.Save(ctx, initial); err != nil {
		flowgraph.LogPersistenceError(x.logger, x.executionID, "save_initial_state", err)
	}

	frontier := []string{x.graph.EntryNodeID()}
	launched := make(map[string]bool)
	inflight := 0

	for {
		if runCtx.Err() != nil {
			frontier = frontier[:0]
		}
		for len(frontier) > 0 && inflight < x.opts.MaxConcurrency {
			nodeID := frontier[0]
			frontier = frontier[1:]
			if launched[nodeID] || x.isCompleted(nodeID) {
				continue
			}
			node, ok := x.graph.Node(nodeID)
			if !ok {
				continue
			}
			launched[nodeID] = true
			inflight++
			n := node
			if err := x.pool.Submit(func() {
				x.done <- x.runNode(spanCtx, n)
			}); err != nil {
				inflight--
				x.recordError(fmt.Sprintf("failed to schedule node %s: %v", nodeID, err))
				cancel()
			}
		}

		if inflight == 0 {
			break
		}

		outcome := <-x.done
		inflight--
		if outcome.ok || x.opts.ContinueOnError {
			for _, nextID := range outcome.next {
				if !launched[nextID] && !x.isCompleted(nextID) {
					frontier = append(frontier, nextID)
				}
			}
		}
		if !outcome.ok && !x.opts.ContinueOnError {
			cancel()
		}
	}

	x.finish(ctx, m, started, launched, runCtx.Err() != nil)
}

// finish computes the terminal status, persists the final state and
// emits the terminal event. A cancelled run completes only when every
// exit node finished before cancellation landed; otherwise the run
// completes when at least one exit finished and no launched exit was
// left incomplete (exits routed away by predicates don't count
// against it).
func (x *execution) finish(ctx context.Context, m *metricsSet, started time.Time, launched map[string]bool, cancelled bool) {
	exits := x.graph.ExitNodeIDs()
	exitsCompleted := 0
	launchedExitIncomplete := false
	for _, exitID := range exits {
		switch {
		case x.isCompleted(exitID):
			exitsCompleted++
		case launched[exitID]:
			launchedExitIncomplete = true
		}
	}

	var completedAll bool
	if cancelled {
		completedAll = exitsCompleted == len(exits)
	} else {
		completedAll = exitsCompleted > 0 && !launchedExitIncomplete
	}

	final := x.snapshot()
	if completedAll {
		final = final.WithStatus(flowgraph.StatusCompleted)
		x.setCurrent(final)
		if err := x.store.Save(ctx, final); err != nil {
			flowgraph.LogPersistenceError(x.logger, x.executionID, "save_final_state", err)
		}
		x.emitter.send(func(prevHash string) flowgraph.StateEvent {
			return flowgraph.NewWorkflowCompleted(x.executionID, final, prevHash)
		})
		flowgraph.LogExecutionCompleted(x.logger, x.executionID, time.Since(started))
		m.executionsTotal.WithLabelValues("completed").Inc()
		return
	}

	errMsg := x.firstError()
	switch {
	case errMsg == "" && cancelled:
		errMsg = "execution cancelled"
		final = final.WithStatus(flowgraph.StatusCancelled).WithError(errMsg)
	case errMsg == "":
		errMsg = "execution did not reach all exit nodes"
		final = final.WithError(errMsg)
	default:
		final = final.WithError(errMsg)
	}
	x.setCurrent(final)
	if err := x.store.Save(ctx, final); err != nil {
		flowgraph.LogPersistenceError(x.logger, x.executionID, "save_final_state", err)
	}
	x.emitter.send(func(prevHash string) flowgraph.StateEvent {
		return flowgraph.NewWorkflowFailed(x.executionID, final, errMsg, prevHash)
	})
	flowgraph.LogExecutionFailed(x.logger, x.executionID,
		flowgraph.NewWorkflowError(flowgraph.ErrCodeExecutionFailed, errMsg))
	m.executionsTotal.WithLabelValues("failed").Inc()
}

func (x *execution) snapshot() flowgraph.WorkflowState {
	x.stateMu.Lock()
	defer x.stateMu.Unlock()
	return x.current
}

func (x *execution) setCurrent(state flowgraph.WorkflowState) {
	x.stateMu.Lock()
	x.current = state
	x.stateMu.Unlock()
}

// commit serialises successful state advances: each commit derives from
// the then-current snapshot, so a later-committing sibling sees the
// earlier sibling's step increment. The NodeExited event is emitted
// under the same lock so stream order agrees with step order.
func (x *execution) commit(ctx context.Context, nodeID string, output flowgraph.WorkflowState) flowgraph.WorkflowState {
	x.stateMu.Lock()
	defer x.stateMu.Unlock()

	prev := x.current
	next := output.WithCurrentNode(nodeID).WithStep(prev.Step + 1)
	x.current = next
	if err := x.store.Save(ctx, next); err != nil {
		flowgraph.LogPersistenceError(x.logger, x.executionID, "save_state", err)
	}
	x.emitter.send(func(prevHash string) flowgraph.StateEvent {
		return flowgraph.NewNodeExited(x.executionID, nodeID, next, prevHash)
	})
	return next
}

// emitWithState publishes an event built from the current snapshot
// while holding the state lock, so concurrent commits cannot reorder
// step values on the stream
func (x *execution) emitWithState(build func(state flowgraph.WorkflowState, prevHash string) flowgraph.StateEvent) flowgraph.WorkflowState {
	x.stateMu.Lock()
	defer x.stateMu.Unlock()

	state := x.current
	x.emitter.send(func(prevHash string) flowgraph.StateEvent {
		return build(state, prevHash)
	})
	return state
}

func (x *execution) isCompleted(nodeID string) bool {
	x.completedMu.Lock()
	defer x.completedMu.Unlock()
	_, ok := x.completed[nodeID]
	return ok
}

func (x *execution) markCompleted(nodeID string) {
	x.completedMu.Lock()
	x.completed[nodeID] = struct{}{}
	x.completedMu.Unlock()
}

func (x *execution) recordError(msg string) {
	x.errMu.Lock()
	if x.firstErr == "" {
		x.firstErr = msg
	}
	x.errMu.Unlock()
}

func (x *execution) firstError() string {
	x.errMu.Lock()
	defer x.errMu.Unlock()
	return x.firstErr
}

// enabledTargets evaluates the outgoing edge predicates of a node
// against a state, in edge insertion order
func (x *execution) enabledTargets(nodeID string, state flowgraph.WorkflowState) []string {
	var targets []string
	for _, edge := range x.graph.Outgoing(nodeID) {
		if edge.Enabled(state) {
			targets = append(targets, edge.Target)
		}
	}
	return targets
}
