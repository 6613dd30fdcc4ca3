package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/sicko7947/flowgraph"
)

const defaultModel = "gpt-4o-mini"

// OpenAIClient implements Client on the OpenAI chat completions API
type OpenAIClient struct {
	client openai.Client
	model  string
}

// OpenAIOption configures the client
type OpenAIOption func(*openAIOptions)

type openAIOptions struct {
	apiKey  string
	baseURL string
	model   string
}

// WithAPIKey sets the API key explicitly
func WithAPIKey(key string) OpenAIOption {
	return func(o *openAIOptions) {
		o.apiKey = key
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint
func WithBaseURL(url string) OpenAIOption {
	return func(o *openAIOptions) {
		o.baseURL = url
	}
}

// WithModel sets the default model used when a request names none
func WithModel(model string) OpenAIOption {
	return func(o *openAIOptions) {
		o.model = model
	}
}

// NewOpenAIClient creates an OpenAI-backed Client
func NewOpenAIClient(opts ...OpenAIOption) *OpenAIClient {
	var o openAIOptions
	for _, opt := range opts {
		opt(&o)
	}
	var clientOpts []openaiopt.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	model := o.model
	if model == "" {
		model = defaultModel
	}
	return &OpenAIClient{
		client: openai.NewClient(clientOpts...),
		model:  model,
	}
}

var _ Client = (*OpenAIClient)(nil)

// Generate performs a blocking completion
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	completion, err := c.client.Chat.Completions.New(ctx, c.buildParams(req))
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, fmt.Errorf("chat completion returned no choices")
	}

	choice := completion.Choices[0]
	resp := Response{
		Content:      choice.Message.Content,
		Model:        completion.Model,
		TokensUsed:   int(completion.Usage.TotalTokens),
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, flowgraph.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
			Status:    flowgraph.ToolCallPending,
		})
	}
	return resp, nil
}

// GenerateStreaming yields content deltas as they arrive
func (c *OpenAIClient) GenerateStreaming(ctx context.Context, req Request) (<-chan string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.buildParams(req))
	chunks := make(chan string)
	go func() {
		defer close(chunks)
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case chunks <- delta:
			case <-ctx.Done():
				return
			}
		}
	}()
	return chunks, nil
}

func (c *OpenAIClient) buildParams(req Request) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = c.model
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: c.convertMessages(req),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxTokens))
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  shared.FunctionParameters(tool.Parameters),
			},
		})
	}
	return params
}

func (c *OpenAIClient) convertMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		case "tool":
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ID))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	return messages
}
