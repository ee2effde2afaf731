package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"promptd/internal/logger"
	"promptd/pkg/prompttypes"
)

// AnthropicClient implements the LLMClient interface for Anthropic's API.
// It provides lazy initialization of the Anthropic client and handles
// all Anthropic-specific communication logic.
type AnthropicClient struct {
	apiKey  string
	baseURL string
	client  *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client with lazy initialization.
// The actual Anthropic client is created only when the first request is made.
// baseURL may be empty to use the provider default.
func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  nil, // Will be initialized lazily
	}
}

// GetProviderName returns the provider name for this client.
func (c *AnthropicClient) GetProviderName() string {
	return "anthropic"
}

// IsConfigured returns true if the client has a valid API key.
func (c *AnthropicClient) IsConfigured() bool {
	return c.apiKey != ""
}

// initializeClientIfNeeded initializes the Anthropic client if it hasn't been initialized yet.
func (c *AnthropicClient) initializeClientIfNeeded() error {
	if c.client != nil {
		return nil // Already initialized
	}

	if c.apiKey == "" {
		return fmt.Errorf("anthropic API key not configured")
	}

	options := []option.RequestOption{option.WithAPIKey(c.apiKey)}
	if c.baseURL != "" {
		options = append(options, option.WithBaseURL(c.baseURL))
	}

	client := anthropic.NewClient(options...)
	c.client = &client

	logger.Debug("Anthropic client initialized", "provider", "anthropic")
	return nil
}

// SendChatCompletion sends a chat completion request to Anthropic.
func (c *AnthropicClient) SendChatCompletion(thread *prompttypes.ChatThread, model *prompttypes.ModelConfig) (string, error) {
	logger.Debug("Anthropic SendChatCompletion starting", "model", model.BaseModel)

	if err := c.initializeClientIfNeeded(); err != nil {
		return "", fmt.Errorf("failed to initialize Anthropic client: %w", err)
	}

	// Anthropic takes system text as a top-level parameter, not as messages.
	messages, systemPrompt := c.convertMessagesToAnthropic(thread)
	logger.Debug("Messages converted", "message_count", len(messages))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model.BaseModel),
		MaxTokens: 1024, // Default, overridden by parameters below when set
		Messages:  messages,
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
		logger.Debug("System prompt added", "system_prompt_length", len(systemPrompt))
	}

	c.applyModelParameters(&params, model)

	logger.Debug("Sending Anthropic request", "model", model.BaseModel)
	message, err := c.client.Messages.New(context.Background(), params)
	if err != nil {
		logger.Error("Anthropic request failed", "error", err)
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	if len(message.Content) == 0 {
		logger.Error("No response content returned")
		return "", fmt.Errorf("no response content returned")
	}

	// Concatenate all text blocks
	var content string
	for _, block := range message.Content {
		content += block.Text
	}

	if content == "" {
		logger.Error("Empty response content")
		return "", fmt.Errorf("empty response content")
	}

	logger.Debug("Anthropic response received", "content_length", len(content))
	return content, nil
}

// StreamChatCompletion sends a streaming chat completion request to Anthropic.
// Threads bound to Anthropic models never have streaming delivery enabled, so
// this completes the request synchronously and returns it as a single chunk.
func (c *AnthropicClient) StreamChatCompletion(thread *prompttypes.ChatThread, model *prompttypes.ModelConfig) (<-chan prompttypes.StreamChunk, error) {
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

// convertMessagesToAnthropic converts thread messages to Anthropic format.
// Returns the conversation messages and the combined system instructions found
// in the conversation history.
func (c *AnthropicClient) convertMessagesToAnthropic(thread *prompttypes.ChatThread) ([]anthropic.MessageParam, string) {
	messages := make([]anthropic.MessageParam, 0, len(thread.Messages))
	var systemPrompt string

	for _, msg := range thread.Messages {
		switch msg.Role {
		case "user":
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case "system":
			// Collect system messages into the top-level system prompt
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
		default:
			// Skip unknown roles
			continue
		}
	}

	return messages, systemPrompt
}

// applyModelParameters applies model configuration parameters to the Anthropic request.
func (c *AnthropicClient) applyModelParameters(params *anthropic.MessageNewParams, model *prompttypes.ModelConfig) {
	if model.Parameters == nil {
		return
	}

	if temp, ok := model.Parameters["temperature"]; ok {
		if tempFloat, ok := temp.(float64); ok {
			params.Temperature = anthropic.Float(tempFloat)
		}
	}

	if maxTokens, ok := model.Parameters["max_tokens"]; ok {
		if maxTokensInt, ok := maxTokens.(int); ok {
			params.MaxTokens = int64(maxTokensInt)
		}
	}
}
