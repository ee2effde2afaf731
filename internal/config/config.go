// Package config provides configuration loading for promptd.
// It loads environment files, resolves model-selection keys to provider
// bindings, and loads the instruction-template library used to seed sessions.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"promptd/internal/logger"
	"promptd/pkg/prompttypes"
)

// Provider name constants as they appear in resolved model names.
const (
	ProviderVertexAI  = "vertex_ai"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds process-wide configuration for promptd.
// All values come from the environment (optionally seeded from a .env file)
// plus the instruction-template YAML file.
type Config struct {
	Prompts PromptLibrary
}

// Load reads the optional .env file and the instruction-template library.
// A missing .env file is not an error; a missing or malformed prompts file is,
// since sessions cannot be seeded without instruction templates.
func Load(envFile, promptsFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if os.IsNotExist(err) {
				logger.Debug("No .env file found", "path", envFile)
			} else {
				return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		} else {
			logger.Debug("Environment file loaded", "path", envFile)
		}
	}

	prompts, err := LoadPrompts(promptsFile)
	if err != nil {
		return nil, err
	}

	return &Config{Prompts: prompts}, nil
}

// ResolveModelName resolves a model-selection key to a concrete model name.
// The key names an environment variable holding the model name; when the key
// is unset or the variable is empty, DEFAULT_MODEL is used instead.
func (c *Config) ResolveModelName(modelKey string) string {
	modelName := ""
	if modelKey != "" {
		modelName = os.Getenv(modelKey)
	}
	if modelName == "" {
		modelName = os.Getenv("DEFAULT_MODEL")
		logger.Info("Model key not found in environment, using default model",
			"model_key", modelKey, "model", modelName)
	} else {
		logger.Info("Resolved model from environment", "model_key", modelKey, "model", modelName)
	}
	return modelName
}

// ParseModel parses a resolved model name of the form "<provider>/<model>"
// into a model configuration with per-provider default parameters.
// An unrecognized provider prefix is a hard failure.
func (c *Config) ParseModel(modelName string) (*prompttypes.ModelConfig, error) {
	switch {
	case strings.HasPrefix(modelName, ProviderVertexAI+"/"):
		return &prompttypes.ModelConfig{
			Provider:  ProviderVertexAI,
			BaseModel: strings.TrimPrefix(modelName, ProviderVertexAI+"/"),
			Parameters: map[string]any{
				"temperature": 0.5,
				"max_tokens":  8192,
			},
		}, nil

	case strings.HasPrefix(modelName, ProviderOpenAI+"/"):
		base := strings.TrimPrefix(modelName, ProviderOpenAI+"/")
		maxTokens := 8192
		if strings.HasPrefix(base, "gpt-5") {
			maxTokens = 81920
		}
		return &prompttypes.ModelConfig{
			Provider:  ProviderOpenAI,
			BaseModel: base,
			Parameters: map[string]any{
				"temperature": 1.0,
				"max_tokens":  maxTokens,
			},
		}, nil

	case strings.HasPrefix(modelName, ProviderAnthropic+"/"):
		return &prompttypes.ModelConfig{
			Provider:  ProviderAnthropic,
			BaseModel: strings.TrimPrefix(modelName, ProviderAnthropic+"/"),
			Parameters: map[string]any{
				"temperature": 0.7,
				"max_tokens":  8192,
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported model or provider: %s", modelName)
	}
}

// IsStreamingModel reports whether the resolved model name indicates a model
// family served with incremental delivery.
func IsStreamingModel(modelName string) bool {
	return strings.Contains(modelName, "gemini")
}

// OpenAIAPIKey returns the configured OpenAI API key.
func (c *Config) OpenAIAPIKey() string { return os.Getenv("OPENAI_API_KEY") }

// OpenAIAPIBase returns the optional OpenAI-compatible base URL.
func (c *Config) OpenAIAPIBase() string { return os.Getenv("OPENAI_API_BASE") }

// AnthropicAPIKey returns the configured Anthropic API key.
func (c *Config) AnthropicAPIKey() string { return os.Getenv("ANTHROPIC_API_KEY") }

// AnthropicAPIBase returns the optional Anthropic base URL.
func (c *Config) AnthropicAPIBase() string { return os.Getenv("ANTHROPIC_API_BASE") }

// VertexCredentialsPath returns the path to the Vertex AI service-account JSON file.
func (c *Config) VertexCredentialsPath() string { return os.Getenv("VERTEXAI_CREDS_PATH") }

// VertexProject returns the configured Vertex AI project id.
func (c *Config) VertexProject() string { return os.Getenv("VERTEXAI_PROJECT_ID") }

// VertexLocation returns the configured Vertex AI location, defaulting to us-central1.
func (c *Config) VertexLocation() string {
	if loc := os.Getenv("VERTEXAI_LOCATION"); loc != "" {
		return loc
	}
	return "us-central1"
}
