package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/auth/credentials"
	"google.golang.org/genai"

	"promptd/internal/logger"
	"promptd/pkg/prompttypes"
)

// GeminiClient implements the LLMClient interface for Gemini models served
// through Vertex AI. It provides lazy initialization of the genai client and
// handles all Gemini-specific communication logic, including true incremental
// streaming — Gemini is the only provider promptd delivers incrementally.
type GeminiClient struct {
	credsPath string
	project   string
	location  string
	client    *genai.Client
}

// NewVertexGeminiClient creates a new Gemini client bound to the Vertex AI
// backend with lazy initialization. The service-account credentials file is
// read only when the first request is made.
func NewVertexGeminiClient(credsPath, project, location string) *GeminiClient {
	return &GeminiClient{
		credsPath: credsPath,
		project:   project,
		location:  location,
		client:    nil, // Will be initialized lazily
	}
}

// GetProviderName returns the provider name for this client.
func (c *GeminiClient) GetProviderName() string {
	return "vertex_ai"
}

// IsConfigured returns true if the client has a credentials file path configured.
func (c *GeminiClient) IsConfigured() bool {
	return c.credsPath != ""
}

// initializeClientIfNeeded initializes the genai client if it hasn't been
// initialized yet. A missing credentials file is a fatal configuration error:
// the process cannot serve any Vertex-bound thread without it.
func (c *GeminiClient) initializeClientIfNeeded() error {
	if c.client != nil {
		return nil // Already initialized
	}

	if c.credsPath == "" {
		return fmt.Errorf("vertex AI credentials path not configured")
	}

	data, err := os.ReadFile(c.credsPath)
	if err != nil {
		logger.Fatal("Vertex AI credentials file not found", "path", c.credsPath, "error", err)
	}

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: data,
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return fmt.Errorf("failed to load Vertex AI credentials: %w", err)
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:     genai.BackendVertexAI,
		Project:     c.project,
		Location:    c.location,
		Credentials: creds,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c.client = client
	logger.Debug("Gemini client initialized", "provider", "vertex_ai", "project", c.project, "location", c.location)
	return nil
}

// SendChatCompletion sends a chat completion request to Gemini.
func (c *GeminiClient) SendChatCompletion(thread *prompttypes.ChatThread, model *prompttypes.ModelConfig) (string, error) {
	logger.Debug("Gemini SendChatCompletion starting", "model", model.BaseModel)

	if err := c.initializeClientIfNeeded(); err != nil {
		return "", fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	contents := c.convertMessagesToGemini(thread)
	logger.Debug("Messages converted", "content_count", len(contents))

	config := c.buildGenerationConfig(model)

	ctx := context.Background()
	result, err := c.client.Models.GenerateContent(ctx, model.BaseModel, contents, config)
	if err != nil {
		logger.Error("Gemini request failed", "error", err)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	content := c.collectResponseText(result)
	if content == "" {
		logger.Error("Empty response content")
		return "", fmt.Errorf("empty response content")
	}

	logger.Debug("Gemini response received", "content_length", len(content))
	return content, nil
}

// StreamChatCompletion sends a streaming chat completion request to Gemini.
// It returns a channel that receives response chunks as they arrive from the
// Vertex AI stream.
func (c *GeminiClient) StreamChatCompletion(thread *prompttypes.ChatThread, model *prompttypes.ModelConfig) (<-chan prompttypes.StreamChunk, error) {
	logger.Debug("Gemini StreamChatCompletion starting", "model", model.BaseModel)

	if err := c.initializeClientIfNeeded(); err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	contents := c.convertMessagesToGemini(thread)
	config := c.buildGenerationConfig(model)

	ctx := context.Background()
	stream := c.client.Models.GenerateContentStream(ctx, model.BaseModel, contents, config)

	responseChan := make(chan prompttypes.StreamChunk, 10)

	go func() {
		defer close(responseChan)

		for result, err := range stream {
			if err != nil {
				logger.Error("Gemini stream failed", "error", err)
				responseChan <- prompttypes.StreamChunk{Done: true, Error: err}
				return
			}
			if text := c.collectResponseText(result); text != "" {
				responseChan <- prompttypes.StreamChunk{Content: text}
			}
		}

		responseChan <- prompttypes.StreamChunk{Done: true}
	}()

	return responseChan, nil
}

// convertMessagesToGemini converts thread messages to Gemini format.
func (c *GeminiClient) convertMessagesToGemini(thread *prompttypes.ChatThread) []*genai.Content {
	contents := make([]*genai.Content, 0, len(thread.Messages))

	for _, msg := range thread.Messages {
		var role genai.Role
		var content string

		switch msg.Role {
		case "user":
			role = genai.RoleUser
			content = msg.Content
		case "assistant":
			role = genai.RoleModel // Gemini uses "model" instead of "assistant"
			content = msg.Content
		case "system":
			// System messages are treated as user messages in Gemini
			role = genai.RoleUser
			content = "System: " + msg.Content
		default:
			// Skip unknown roles
			continue
		}

		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: content}},
			Role:  string(role),
		})
	}

	// Gemini rejects an empty contents list
	if len(contents) == 0 {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: ""}},
			Role:  string(genai.RoleUser),
		})
	}

	return contents
}

// buildGenerationConfig creates a Gemini generation config from model parameters.
func (c *GeminiClient) buildGenerationConfig(model *prompttypes.ModelConfig) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if model.Parameters == nil {
		return config
	}

	if temp, ok := model.Parameters["temperature"]; ok {
		if tempFloat, ok := temp.(float64); ok {
			tempFloat32 := float32(tempFloat)
			config.Temperature = &tempFloat32
		}
	}

	if maxTokens, ok := model.Parameters["max_tokens"]; ok {
		if maxTokensInt, ok := maxTokens.(int); ok {
			config.MaxOutputTokens = int32(maxTokensInt)
		}
	}

	return config
}

// collectResponseText concatenates the text parts of all candidates, skipping
// thought parts.
func (c *GeminiClient) collectResponseText(result *genai.GenerateContentResponse) string {
	var builder strings.Builder

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" || part.Thought {
				continue
			}
			builder.WriteString(part.Text)
		}
	}

	return builder.String()
}
