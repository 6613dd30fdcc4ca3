package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sicko7947/flowgraph"
)

// ToolFunc executes one tool call with its deserialized arguments
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// ToolNode runs a tool against arguments read from a data key and
// appends a tool message carrying the completed ToolCall record.
type ToolNode struct {
	id        string
	name      string
	toolName  string
	fn        ToolFunc
	argsKey   string
	outputKey string
}

// NewTool creates a tool-backed node. argsKey names the data key
// holding the argument map; outputKey receives the tool output.
func NewTool(id, name, toolName string, fn ToolFunc, argsKey, outputKey string) *ToolNode {
	return &ToolNode{
		id:        id,
		name:      name,
		toolName:  toolName,
		fn:        fn,
		argsKey:   argsKey,
		outputKey: outputKey,
	}
}

var _ flowgraph.Node = (*ToolNode)(nil)

func (n *ToolNode) ID() string   { return n.id }
func (n *ToolNode) Name() string { return n.name }

func (n *ToolNode) Execute(ctx context.Context, state flowgraph.WorkflowState) (flowgraph.NodeResult, error) {
	args := map[string]any{}
	if n.argsKey != "" {
		if v, ok := state.Value(n.argsKey); ok {
			typed, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("arguments key %q is not a map", n.argsKey)
			}
			args = typed
		}
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize tool arguments: %w", err)
	}
	call := flowgraph.NewToolCall(n.toolName, string(argsJSON)).WithStatus(flowgraph.ToolCallRunning)

	output, err := n.fn(ctx, args)
	if err != nil {
		return flowgraph.NewFailure(n.id, fmt.Sprintf("tool %s failed", n.toolName), err), nil
	}

	outputJSON, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize tool output: %w", err)
	}
	call = call.WithOutput(string(outputJSON))

	msg := flowgraph.NewMessage("tool", string(outputJSON)).
		WithName(n.toolName).
		WithToolCalls(call)
	out := state.WithMessage(msg)
	if n.outputKey != "" {
		out = out.WithData(n.outputKey, output)
	}
	return flowgraph.NewSuccess(n.id, out), nil
}

func (n *ToolNode) InputKeys() []string {
	if n.argsKey != "" {
		return []string{n.argsKey}
	}
	return nil
}

func (n *ToolNode) OutputKeys() []string {
	if n.outputKey != "" {
		return []string{n.outputKey}
	}
	return nil
}
