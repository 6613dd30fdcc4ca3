package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient replays scripted responses in order. Intended for tests
// and offline demos.
type MockClient struct {
	mu        sync.Mutex
	responses []Response
	calls     int

	// Requests records every request received, in order
	Requests []Request
}

// NewMockClient creates a mock that cycles through the given responses
func NewMockClient(responses ...Response) *MockClient {
	return &MockClient{responses: responses}
}

var _ Client = (*MockClient)(nil)

// Generate returns the next scripted response
func (m *MockClient) Generate(_ context.Context, req Request) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if len(m.responses) == 0 {
		return Response{}, fmt.Errorf("mock client has no scripted responses")
	}
	resp := m.responses[m.calls%len(m.responses)]
	m.calls++
	return resp, nil
}

// GenerateStreaming splits the next scripted response into rune chunks
func (m *MockClient) GenerateStreaming(ctx context.Context, req Request) (<-chan string, error) {
	resp, err := m.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	chunks := make(chan string)
	go func() {
		defer close(chunks)
		for _, r := range resp.Content {
			select {
			case chunks <- string(r):
			case <-ctx.Done():
				return
			}
		}
	}()
	return chunks, nil
}

// Calls returns how many generations were served
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
