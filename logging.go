package flowgraph

import (
	"time"

	"github.com/rs/zerolog"
)

// Log event names
const (
	// Execution-level events
	LogEventExecutionStarted   = "execution_started"
	LogEventExecutionCompleted = "execution_completed"
	LogEventExecutionFailed    = "execution_failed"
	LogEventExecutionCancelled = "execution_cancelled"

	// Node-level events
	LogEventNodeStarted   = "node_started"
	LogEventNodeCompleted = "node_completed"
	LogEventNodeFailed    = "node_failed"
	LogEventNodeRetrying  = "node_retrying"
	LogEventNodeSkipped   = "node_skipped"

	// Persistence events
	LogEventPersistenceError = "persistence_error"
)

// LogExecutionStarted logs when an execution starts
func LogExecutionStarted(logger zerolog.Logger, executionID, workflowID string) {
	logger.Info().
		Str("event", LogEventExecutionStarted).
		Str("execution_id", executionID).
		Str("workflow_id", workflowID).
		Msg("Execution started")
}

// LogExecutionCompleted logs successful completion
func LogExecutionCompleted(logger zerolog.Logger, executionID string, duration time.Duration) {
	logger.Info().
		Str("event", LogEventExecutionCompleted).
		Str("execution_id", executionID).
		Dur("duration", duration).
		Msg("Execution completed")
}

// LogExecutionFailed logs an execution failure
func LogExecutionFailed(logger zerolog.Logger, executionID string, err error) {
	logger.Error().
		Str("event", LogEventExecutionFailed).
		Str("execution_id", executionID).
		Err(err).
		Msg("Execution failed")
}

// LogNodeStarted logs when a node body begins running
func LogNodeStarted(logger zerolog.Logger, executionID, nodeID, nodeName string) {
	logger.Info().
		Str("event", LogEventNodeStarted).
		Str("execution_id", executionID).
		Str("node_id", nodeID).
		Str("node_name", nodeName).
		Msg("Node started")
}

// LogNodeCompleted logs a successful node exit
func LogNodeCompleted(logger zerolog.Logger, executionID, nodeID string, durationMs int64) {
	logger.Info().
		Str("event", LogEventNodeCompleted).
		Str("execution_id", executionID).
		Str("node_id", nodeID).
		Int64("duration_ms", durationMs).
		Msg("Node completed")
}

// LogNodeFailed logs a node failure
func LogNodeFailed(logger zerolog.Logger, executionID, nodeID string, err error, attempt int) {
	logger.Error().
		Str("event", LogEventNodeFailed).
		Str("execution_id", executionID).
		Str("node_id", nodeID).
		Err(err).
		Int("attempt", attempt).
		Msg("Node failed")
}

// LogNodeRetrying logs a retry attempt
func LogNodeRetrying(logger zerolog.Logger, executionID, nodeID string, attempt int, delay time.Duration) {
	logger.Warn().
		Str("event", LogEventNodeRetrying).
		Str("execution_id", executionID).
		Str("node_id", nodeID).
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("Node retrying")
}

// LogNodeSkipped logs a skipped node
func LogNodeSkipped(logger zerolog.Logger, executionID, nodeID, reason string) {
	logger.Info().
		Str("event", LogEventNodeSkipped).
		Str("execution_id", executionID).
		Str("node_id", nodeID).
		Str("reason", reason).
		Msg("Node skipped")
}

// LogPersistenceError logs errors during persistence operations
func LogPersistenceError(logger zerolog.Logger, executionID, operation string, err error) {
	logger.Error().
		Str("event", LogEventPersistenceError).
		Str("execution_id", executionID).
		Str("operation", operation).
		Err(err).
		Msg("Persistence error")
}

// ExecutionLogger creates a logger enriched with execution context
func ExecutionLogger(baseLogger zerolog.Logger, executionID, workflowID string) zerolog.Logger {
	return baseLogger.With().
		Str("execution_id", executionID).
		Str("workflow_id", workflowID).
		Logger()
}

// NodeLogger creates a logger enriched with node context
func NodeLogger(executionLogger zerolog.Logger, nodeID, nodeName string) zerolog.Logger {
	return executionLogger.With().
		Str("node_id", nodeID).
		Str("node_name", nodeName).
		Logger()
}
