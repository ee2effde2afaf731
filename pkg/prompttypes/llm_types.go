// Package prompttypes defines LLM-related types and interfaces for promptd.
// This file contains types for LLM client abstraction and streaming delivery.
package prompttypes

// StreamChunk represents a single chunk of streaming response.
type StreamChunk struct {
	Content string // The text content of this chunk
	Done    bool   // Whether this is the final chunk
	Error   error  // Any error that occurred during streaming
}

// ModelConfig represents a resolved model binding for a thread.
// It combines the API provider, the provider's model identifier, and the
// request parameters applied to every call made on that binding.
type ModelConfig struct {
	// Provider is the API provider name (e.g., "openai", "anthropic", "vertex_ai").
	Provider string `json:"provider"`

	// BaseModel is the provider's model identifier with the provider prefix
	// stripped (e.g., "gpt-4o", "claude-sonnet-4-0", "gemini-2.5-pro").
	BaseModel string `json:"base_model"`

	// Parameters contains provider-specific request parameters.
	// Common parameters: temperature, max_tokens.
	Parameters map[string]any `json:"parameters"`
}

// LLMClient defines the interface for LLM provider implementations.
// This interface abstracts different LLM providers (OpenAI, Anthropic, Gemini)
// and provides a common way to interact with them.
type LLMClient interface {
	// SendChatCompletion sends a chat completion request and returns the full response.
	SendChatCompletion(thread *ChatThread, model *ModelConfig) (string, error)

	// StreamChatCompletion sends a streaming chat completion request.
	// It returns a channel that receives response chunks as they arrive.
	StreamChatCompletion(thread *ChatThread, model *ModelConfig) (<-chan StreamChunk, error)

	// GetProviderName returns the name of the LLM provider (e.g., "openai", "anthropic").
	GetProviderName() string

	// IsConfigured returns true if the client has valid configuration and can make requests.
	IsConfigured() bool
}
