// Package llm provides the LLM gateway for promptd: per-provider client
// implementations and the factory that resolves model-selection keys into
// bound clients.
package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"promptd/internal/logger"
	"promptd/pkg/prompttypes"
)

// OpenAIClient implements the LLMClient interface for OpenAI's API.
// It provides lazy initialization of the OpenAI client and handles
// all OpenAI-specific communication logic.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *openai.Client
}

// NewOpenAIClient creates a new OpenAI client with lazy initialization.
// The actual OpenAI client is created only when the first request is made.
// baseURL may be empty to use the provider default.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  nil, // Will be initialized lazily
	}
}

// GetProviderName returns the provider name for this client.
func (c *OpenAIClient) GetProviderName() string {
	return "openai"
}

// IsConfigured returns true if the client has a valid API key.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// initializeClientIfNeeded initializes the OpenAI client if it hasn't been initialized yet.
func (c *OpenAIClient) initializeClientIfNeeded() error {
	if c.client != nil {
		return nil // Already initialized
	}

	if c.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}

	options := []option.RequestOption{option.WithAPIKey(c.apiKey)}
	if c.baseURL != "" {
		options = append(options, option.WithBaseURL(c.baseURL))
	}

	client := openai.NewClient(options...)
	c.client = &client

	logger.Debug("OpenAI client initialized", "provider", "openai")
	return nil
}

// SendChatCompletion sends a chat completion request to OpenAI.
func (c *OpenAIClient) SendChatCompletion(thread *prompttypes.ChatThread, model *prompttypes.ModelConfig) (string, error) {
	logger.Debug("OpenAI SendChatCompletion starting", "model", model.BaseModel)

	if err := c.initializeClientIfNeeded(); err != nil {
		return "", fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	messages := c.convertMessagesToOpenAI(thread)
	logger.Debug("Messages converted", "message_count", len(messages))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model.BaseModel),
		Messages: messages,
	}
	c.applyModelParameters(&params, model)

	logger.Debug("Sending OpenAI request", "model", model.BaseModel)
	completion, err := c.client.Chat.Completions.New(context.Background(), params)
	if err != nil {
		logger.Error("OpenAI request failed", "error", err)
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		logger.Error("No response choices returned")
		return "", fmt.Errorf("no response choices returned")
	}

	content := completion.Choices[0].Message.Content
	if content == "" {
		logger.Error("Empty response content")
		return "", fmt.Errorf("empty response content")
	}

	logger.Debug("OpenAI response received", "content_length", len(content))
	return content, nil
}

// StreamChatCompletion sends a streaming chat completion request to OpenAI.
// Threads bound to OpenAI models never have streaming delivery enabled, so
// this completes the request synchronously and returns it as a single chunk.
func (c *OpenAIClient) StreamChatCompletion(thread *prompttypes.ChatThread, model *prompttypes.ModelConfig) (<-chan prompttypes.StreamChunk, error) {
	content, err := c.SendChatCompletion(thread, model)
	if err != nil {
		return nil, err
	}

	responseChan := make(chan prompttypes.StreamChunk, 2)
	go func() {
		defer close(responseChan)
		responseChan <- prompttypes.StreamChunk{Content: content}
		responseChan <- prompttypes.StreamChunk{Done: true}
	}()

	return responseChan, nil
}

// convertMessagesToOpenAI converts thread messages to OpenAI format.
func (c *OpenAIClient) convertMessagesToOpenAI(thread *prompttypes.ChatThread) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(thread.Messages))

	for _, msg := range thread.Messages {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		default:
			// Skip unknown roles
			continue
		}
	}

	return messages
}

// applyModelParameters applies model configuration parameters to the OpenAI request.
func (c *OpenAIClient) applyModelParameters(params *openai.ChatCompletionNewParams, model *prompttypes.ModelConfig) {
	if model.Parameters == nil {
		return
	}

	if temp, ok := model.Parameters["temperature"]; ok {
		if tempFloat, ok := temp.(float64); ok {
			params.Temperature = openai.Float(tempFloat)
		}
	}

	if maxTokens, ok := model.Parameters["max_tokens"]; ok {
		if maxTokensInt, ok := maxTokens.(int); ok {
			params.MaxTokens = openai.Int(int64(maxTokensInt))
		}
	}
}
