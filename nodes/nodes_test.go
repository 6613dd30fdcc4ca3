package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sicko7947/flowgraph"
	"github.com/sicko7947/flowgraph/llm"
)

func TestPassthrough(t *testing.T) {
	n := NewPassthrough("p", "Pass")
	state := flowgraph.NewWorkflowState("wf", "").WithData("k", "v")

	result, err := n.Execute(context.Background(), state)
	require.NoError(t, err)

	success, ok := result.(flowgraph.Success)
	require.True(t, ok)
	assert.Equal(t, state.ID, success.OutputState.ID)
	assert.Equal(t, "p", success.Meta().NodeID)
}

func TestFuncNode(t *testing.T) {
	n := NewFunc("double", "Double",
		func(_ context.Context, s flowgraph.WorkflowState) (flowgraph.WorkflowState, error) {
			v, _ := flowgraph.StateValue[int](s, "n")
			return s.WithData("n", v*2), nil
		},
		WithInputKeys("n"),
		WithOutputKeys("n"),
	)

	assert.Equal(t, []string{"n"}, n.InputKeys())
	assert.Equal(t, []string{"n"}, n.OutputKeys())

	state := flowgraph.NewWorkflowState("wf", "").WithData("n", 21)
	result, err := n.Execute(context.Background(), state)
	require.NoError(t, err)

	success := result.(flowgraph.Success)
	v, _ := flowgraph.StateValue[int](success.OutputState, "n")
	assert.Equal(t, 42, v)
}

func TestFuncNode_ErrorPropagates(t *testing.T) {
	n := NewFunc("bad", "Bad", func(context.Context, flowgraph.WorkflowState) (flowgraph.WorkflowState, error) {
		return flowgraph.WorkflowState{}, errors.New("nope")
	})

	_, err := n.Execute(context.Background(), flowgraph.NewWorkflowState("wf", ""))
	assert.Error(t, err)
}

func TestFuncNode_Tag(t *testing.T) {
	plain := NewFunc("a", "a", nil)
	assert.Equal(t, "", flowgraph.NodeTag(plain))

	tagged := NewFunc("b", "b", nil, WithTag("backend"))
	assert.Equal(t, "backend", flowgraph.NodeTag(tagged))
}

func TestLLMNode_AppendsAssistantMessage(t *testing.T) {
	client := llm.NewMockClient(llm.Response{Content: "hello there", TokensUsed: 7})
	n := NewLLM("chat", "Chat", client, WithSystemPrompt("be brief"))

	assert.Equal(t, flowgraph.TagLLM, n.Tag())

	state := flowgraph.NewWorkflowState("wf", "").
		WithMessage(flowgraph.NewMessage("user", "hi"))
	result, err := n.Execute(context.Background(), state)
	require.NoError(t, err)

	success := result.(flowgraph.Success)
	require.Len(t, success.OutputState.Messages, 2)
	reply := success.OutputState.Messages[1]
	assert.Equal(t, "assistant", reply.Role)
	assert.Equal(t, "hello there", reply.Content)

	last, ok := flowgraph.StateValue[string](success.OutputState, DataKeyLastResponse)
	require.True(t, ok)
	assert.Equal(t, "hello there", last)

	require.Len(t, client.Requests, 1)
	assert.Equal(t, "be brief", client.Requests[0].SystemPrompt)
}

func TestLLMNode_PromptKey(t *testing.T) {
	client := llm.NewMockClient(llm.Response{Content: "answer"})
	n := NewLLM("chat", "Chat", client, WithPromptKey("question"))

	state := flowgraph.NewWorkflowState("wf", "").WithData("question", "why?")
	result, err := n.Execute(context.Background(), state)
	require.NoError(t, err)

	success := result.(flowgraph.Success)
	require.Len(t, success.OutputState.Messages, 2)
	assert.Equal(t, "user", success.OutputState.Messages[0].Role)
	assert.Equal(t, "why?", success.OutputState.Messages[0].Content)
}

func TestLLMNode_MissingPromptKey(t *testing.T) {
	client := llm.NewMockClient(llm.Response{Content: "answer"})
	n := NewLLM("chat", "Chat", client, WithPromptKey("question"))

	_, err := n.Execute(context.Background(), flowgraph.NewWorkflowState("wf", ""))
	assert.Error(t, err)
	assert.Equal(t, 0, client.Calls())
}

func TestToolNode_RecordsToolCall(t *testing.T) {
	n := NewTool("lookup", "Lookup", "search",
		func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"hits": 3, "q": args["q"]}, nil
		},
		"search_args", "search_result")

	state := flowgraph.NewWorkflowState("wf", "").
		WithData("search_args", map[string]any{"q": "go"})
	result, err := n.Execute(context.Background(), state)
	require.NoError(t, err)

	success := result.(flowgraph.Success)
	require.Len(t, success.OutputState.Messages, 1)
	msg := success.OutputState.Messages[0]
	assert.Equal(t, "tool", msg.Role)
	assert.Equal(t, "search", msg.Name)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, flowgraph.ToolCallCompleted, msg.ToolCalls[0].Status)
	assert.NotNil(t, msg.ToolCalls[0].CompletedAt)

	_, ok := success.OutputState.Value("search_result")
	assert.True(t, ok)
}

func TestToolNode_FailureResult(t *testing.T) {
	n := NewTool("lookup", "Lookup", "search",
		func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("upstream down")
		},
		"", "")

	result, err := n.Execute(context.Background(), flowgraph.NewWorkflowState("wf", ""))
	require.NoError(t, err)

	failure, ok := result.(flowgraph.Failure)
	require.True(t, ok)
	assert.Contains(t, failure.Reason, "search")
	assert.Error(t, failure.Err)
}

func TestGuard_PolicyVetoSkips(t *testing.T) {
	inner := NewPassthrough("p", "Pass")
	guarded := Guard(inner, NewContentFilter("forbidden"))

	state := flowgraph.NewWorkflowState("wf", "").
		WithMessage(flowgraph.NewMessage("user", "this is FORBIDDEN content"))
	result, err := guarded.Execute(context.Background(), state)
	require.NoError(t, err)

	skipped, ok := result.(flowgraph.Skipped)
	require.True(t, ok)
	assert.Contains(t, skipped.Reason, "content_filter")
}

func TestGuard_PassesCleanState(t *testing.T) {
	inner := NewPassthrough("p", "Pass")
	guarded := Guard(inner, NewContentFilter("forbidden"), NewMaxMessages(10))

	state := flowgraph.NewWorkflowState("wf", "").
		WithMessage(flowgraph.NewMessage("user", "all good"))
	result, err := guarded.Execute(context.Background(), state)
	require.NoError(t, err)

	_, ok := result.(flowgraph.Success)
	assert.True(t, ok)
}

func TestGuard_ForwardsTag(t *testing.T) {
	client := llm.NewMockClient(llm.Response{Content: "x"})
	guarded := Guard(NewLLM("chat", "Chat", client))
	assert.Equal(t, flowgraph.TagLLM, flowgraph.NodeTag(guarded))
}

func TestMaxMessages(t *testing.T) {
	p := NewMaxMessages(1)
	state := flowgraph.NewWorkflowState("wf", "").
		WithMessage(flowgraph.NewMessage("user", "one")).
		WithMessage(flowgraph.NewMessage("user", "two"))

	assert.Error(t, p.Check(context.Background(), state))
	assert.NoError(t, p.Check(context.Background(), flowgraph.NewWorkflowState("wf", "")))
}

func TestRateLimit(t *testing.T) {
	p := NewRateLimit(2, time.Hour)
	state := flowgraph.NewWorkflowState("wf", "")

	assert.NoError(t, p.Check(context.Background(), state))
	assert.NoError(t, p.Check(context.Background(), state))
	assert.Error(t, p.Check(context.Background(), state))
}
