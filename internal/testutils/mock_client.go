// Package testutils provides shared test doubles for promptd packages.
package testutils

import (
	"promptd/internal/config"
	"promptd/pkg/prompttypes"
)

// MockLLMClient is a test double for the LLM gateway. It records the user
// message of every call and replays canned responses, either buffered or as
// chunk sequences.
type MockLLMClient struct {
	// Responses are consumed in call order; when exhausted, a default
	// response is returned.
	Responses []string

	// Chunks are per-call fragment sequences for streaming calls. When a
	// call has no chunk sequence, the next Response is emitted as a single
	// chunk.
	Chunks [][]string

	// Err makes every call fail immediately.
	Err error

	// StreamErr is delivered as an error chunk after the call's fragments.
	StreamErr error

	// Calls holds the latest user message of each call, in order.
	Calls []string

	sendCount   int
	streamCount int
}

// SendChatCompletion replays the next canned response.
func (m *MockLLMClient) SendChatCompletion(thread *prompttypes.ChatThread, _ *prompttypes.ModelConfig) (string, error) {
	m.Calls = append(m.Calls, lastUserMessage(thread))
	if m.Err != nil {
		return "", m.Err
	}

	resp := "mock response"
	if m.sendCount < len(m.Responses) {
		resp = m.Responses[m.sendCount]
	}
	m.sendCount++
	return resp, nil
}

// StreamChatCompletion replays the next canned chunk sequence.
func (m *MockLLMClient) StreamChatCompletion(thread *prompttypes.ChatThread, _ *prompttypes.ModelConfig) (<-chan prompttypes.StreamChunk, error) {
	m.Calls = append(m.Calls, lastUserMessage(thread))
	if m.Err != nil {
		return nil, m.Err
	}

	var fragments []string
	if m.streamCount < len(m.Chunks) {
		fragments = m.Chunks[m.streamCount]
	} else if m.streamCount < len(m.Responses) {
		fragments = []string{m.Responses[m.streamCount]}
	} else {
		fragments = []string{"mock response"}
	}
	m.streamCount++

	streamErr := m.StreamErr
	out := make(chan prompttypes.StreamChunk, len(fragments)+2)
	go func() {
		defer close(out)
		for _, f := range fragments {
			out <- prompttypes.StreamChunk{Content: f}
		}
		if streamErr != nil {
			out <- prompttypes.StreamChunk{Done: true, Error: streamErr}
			return
		}
		out <- prompttypes.StreamChunk{Done: true}
	}()
	return out, nil
}

// GetProviderName returns the provider name for this client.
func (m *MockLLMClient) GetProviderName() string { return "mock" }

// IsConfigured always reports true.
func (m *MockLLMClient) IsConfigured() bool { return true }

func lastUserMessage(thread *prompttypes.ChatThread) string {
	for i := len(thread.Messages) - 1; i >= 0; i-- {
		if thread.Messages[i].Role == "user" {
			return thread.Messages[i].Content
		}
	}
	return ""
}

// StubResolver is a session.Resolver test double returning fixed values.
type StubResolver struct {
	Client    prompttypes.LLMClient
	Model     *prompttypes.ModelConfig
	ModelName string
	Err       error
}

// Resolve returns the stubbed binding regardless of the model key.
func (r *StubResolver) Resolve(_ string) (prompttypes.LLMClient, *prompttypes.ModelConfig, string, error) {
	if r.Err != nil {
		return nil, nil, "", r.Err
	}
	model := r.Model
	if model == nil {
		model = &prompttypes.ModelConfig{Provider: "mock", BaseModel: "mock-model"}
	}
	return r.Client, model, r.ModelName, nil
}

// TestPrompts returns a small instruction-template library for tests.
func TestPrompts() config.PromptLibrary {
	return config.PromptLibrary{
		config.PromptMarkdownInstruction: {Description: "format as markdown"},
		config.PromptTaskAnalysis:        {Description: "decompose the task"},
		config.PromptGenerator:           {Description: "generate prompts"},
	}
}
