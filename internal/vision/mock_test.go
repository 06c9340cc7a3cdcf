package vision

import (
	"context"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// mockChatClient implements ChatAPI for testing.
type mockChatClient struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	content  string
	usage    openai.Usage
	noChoice bool
	err      error
	// block makes the call wait for ctx cancellation.
	block bool
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return openai.ChatCompletionResponse{}, ctx.Err()
	}
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if m.noChoice {
		return openai.ChatCompletionResponse{Usage: m.usage}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.content,
			},
		}},
		Usage: m.usage,
	}, nil
}

func (m *mockChatClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

const fullPayload = `{
  "old_looking": {"detected": false, "confidence": 0.1},
  "login_page": {"detected": true, "confidence": 0.95},
  "webapp": {"detected": true, "confidence": 0.8},
  "custom_404": {"detected": false, "confidence": 0.05},
  "parked_domain": {"detected": false, "confidence": 0.0},
  "technologies": ["React", "nginx"],
  "security_issues": ["Login form served over HTTP"]
}`
