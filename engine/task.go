package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sicko7947/flowgraph"
)

// runNode executes one node task: permit acquisition, NodeEntered,
// the node body under its timeout with retry and circuit breaking,
// then either a serialised state commit with NodeExited or a NodeError.
func (x *execution) runNode(ctx context.Context, node flowgraph.Node) taskOutcome {
	// Second gate beneath the scheduler's cap
	x.permits <- struct{}{}
	defer func() { <-x.permits }()

	m := engineMetrics()
	m.nodesInFlight.Inc()
	defer m.nodesInFlight.Dec()

	tracer := otel.Tracer(tracerName)
	nodeSpanCtx, span := tracer.Start(ctx, fmt.Sprintf("execute_node %s", node.ID()))
	defer span.End()
	span.SetAttributes(
		attribute.String("flowgraph.node_id", node.ID()),
		attribute.String("flowgraph.node_name", node.Name()),
		attribute.String("flowgraph.execution_id", x.executionID),
	)

	prev := x.emitWithState(func(state flowgraph.WorkflowState, prevHash string) flowgraph.StateEvent {
		return flowgraph.NewNodeEntered(x.executionID, node.ID(), state.WithCurrentNode(node.ID()), prevHash)
	})
	flowgraph.LogNodeStarted(x.logger, x.executionID, node.ID(), node.Name())

	timeout := x.opts.TimeoutFor(node)
	var breaker *flowgraph.CircuitBreaker
	if x.opts.Breakers != nil {
		breaker = x.opts.Breakers.ForTag(flowgraph.NodeTag(node))
	}

	started := time.Now()
	result, stack, lastErr := x.attempt(nodeSpanCtx, node, prev, timeout, breaker)
	duration := time.Since(started)
	m.nodeDuration.Observe(duration.Seconds())

	if lastErr == nil {
		switch r := result.(type) {
		case flowgraph.Success:
			next := x.commit(ctx, node.ID(), r.OutputState)
			x.markCompleted(node.ID())
			flowgraph.LogNodeCompleted(x.logger, x.executionID, node.ID(), duration.Milliseconds())
			m.nodesExecuted.WithLabelValues("success").Inc()
			return taskOutcome{nodeID: node.ID(), ok: true, next: x.enabledTargets(node.ID(), next)}

		case flowgraph.Skipped:
			// A skip leaves the state untouched but completes the node,
			// so downstream scheduling proceeds.
			current := x.emitWithState(func(state flowgraph.WorkflowState, prevHash string) flowgraph.StateEvent {
				return flowgraph.NewNodeExited(x.executionID, node.ID(), state, prevHash)
			})
			x.markCompleted(node.ID())
			flowgraph.LogNodeSkipped(x.logger, x.executionID, node.ID(), r.Reason)
			m.nodesExecuted.WithLabelValues("skipped").Inc()
			return taskOutcome{nodeID: node.ID(), ok: true, next: x.enabledTargets(node.ID(), current)}

		case flowgraph.Failure:
			lastErr = r.Err
			if lastErr == nil {
				lastErr = flowgraph.NewNodeErrorDetail(flowgraph.ErrCodeExecutionFailed, r.Reason, node.ID(), 1)
			}
		default:
			lastErr = fmt.Errorf("node %s returned no result", node.ID())
		}
	}

	errMsg := lastErr.Error()
	span.SetAttributes(attribute.String("flowgraph.error", errMsg))
	x.recordError(fmt.Sprintf("node %s: %s", node.ID(), errMsg))
	current := x.emitWithState(func(state flowgraph.WorkflowState, prevHash string) flowgraph.StateEvent {
		return flowgraph.NewNodeError(x.executionID, node.ID(), state, errMsg, stack, prevHash)
	})
	flowgraph.LogNodeFailed(x.logger, x.executionID, node.ID(), lastErr, 1)
	m.nodesExecuted.WithLabelValues("error").Inc()
	return taskOutcome{nodeID: node.ID(), ok: false, next: x.enabledTargets(node.ID(), current)}
}

// attempt runs the node body once per retry attempt. The breaker
// decides admission before each attempt; the body itself is invoked
// exactly once per attempt.
func (x *execution) attempt(
	ctx context.Context,
	node flowgraph.Node,
	state flowgraph.WorkflowState,
	timeout time.Duration,
	breaker *flowgraph.CircuitBreaker,
) (flowgraph.NodeResult, string, error) {
	m := engineMetrics()
	maxAttempts := 1
	if x.opts.Retry != nil {
		maxAttempts = x.opts.Retry.MaxAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var result flowgraph.NodeResult
	var stack string
	var lastErr error

	for attemptNum := 1; attemptNum <= maxAttempts; attemptNum++ {
		if attemptNum > 1 {
			delay := x.opts.Retry.NextDelay(attemptNum - 1)
			flowgraph.LogNodeRetrying(x.logger, x.executionID, node.ID(), attemptNum, delay)
			m.nodesRetried.Inc()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, "", ctx.Err()
			}
		}

		if breaker != nil && !breaker.Allow() {
			return nil, "", flowgraph.ErrCircuitOpen
		}

		result, stack, lastErr = x.invoke(ctx, node, state, timeout)
		if lastErr == nil {
			if breaker != nil {
				breaker.Success()
			}
			return result, "", nil
		}
		if breaker != nil {
			breaker.Failure()
		}
		if x.opts.Retry == nil || !x.opts.Retry.ShouldRetry(lastErr, attemptNum) {
			break
		}
	}
	return result, stack, lastErr
}

// invoke runs the node body inside a derived cancellation scope whose
// deadline is the node's timeout budget, recovering panics
func (x *execution) invoke(
	ctx context.Context,
	node flowgraph.Node,
	state flowgraph.WorkflowState,
	timeout time.Duration,
) (result flowgraph.NodeResult, stack string, err error) {
	nodeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			stack = string(debug.Stack())
			err = flowgraph.NewNodeErrorDetail(flowgraph.ErrCodePanic,
				fmt.Sprintf("node %s panicked: %v", node.ID(), r), node.ID(), 1)
		}
	}()

	result, err = node.Execute(nodeCtx, state)
	if err != nil {
		if nodeCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("node %s timed out after %s: %w", node.ID(), timeout, err)
		}
		return nil, "", err
	}
	if result == nil {
		return nil, "", fmt.Errorf("node %s returned a nil result", node.ID())
	}
	return result, "", nil
}
