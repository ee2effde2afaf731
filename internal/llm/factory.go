package llm

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"promptd/internal/config"
	"promptd/internal/logger"
	"promptd/pkg/prompttypes"
)

// Factory resolves model-selection keys into bound LLM clients.
// Clients are cached per provider so every thread bound to the same provider
// shares one client.
type Factory struct {
	cfg     *config.Config
	clients map[string]prompttypes.LLMClient
	mutex   sync.RWMutex
	log     *log.Logger
}

// NewFactory creates a new client factory backed by the given configuration.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		cfg:     cfg,
		clients: make(map[string]prompttypes.LLMClient),
		log:     logger.NewStyledLogger("llm"),
	}
}

// Resolve resolves a model-selection key to a bound client, its model
// configuration, and the resolved model name. An unrecognized provider prefix
// in the resolved name is a hard failure.
func (f *Factory) Resolve(modelKey string) (prompttypes.LLMClient, *prompttypes.ModelConfig, string, error) {
	modelName := f.cfg.ResolveModelName(modelKey)

	model, err := f.cfg.ParseModel(modelName)
	if err != nil {
		return nil, nil, "", err
	}

	client, err := f.clientForProvider(model.Provider)
	if err != nil {
		return nil, nil, "", err
	}

	return client, model, modelName, nil
}

// clientForProvider returns a cached client for the provider, creating it on
// first use.
func (f *Factory) clientForProvider(provider string) (prompttypes.LLMClient, error) {
	f.mutex.RLock()
	if client, exists := f.clients[provider]; exists {
		f.mutex.RUnlock()
		f.log.Debug("Returning cached provider client", "provider", provider)
		return client, nil
	}
	f.mutex.RUnlock()

	f.mutex.Lock()
	defer f.mutex.Unlock()

	// Double-check pattern
	if client, exists := f.clients[provider]; exists {
		return client, nil
	}

	var client prompttypes.LLMClient
	switch provider {
	case config.ProviderOpenAI:
		client = NewOpenAIClient(f.cfg.OpenAIAPIKey(), f.cfg.OpenAIAPIBase())
	case config.ProviderAnthropic:
		client = NewAnthropicClient(f.cfg.AnthropicAPIKey(), f.cfg.AnthropicAPIBase())
	case config.ProviderVertexAI:
		client = NewVertexGeminiClient(f.cfg.VertexCredentialsPath(), f.cfg.VertexProject(), f.cfg.VertexLocation())
	default:
		return nil, fmt.Errorf("unsupported provider '%s'. Supported providers: openai, anthropic, vertex_ai", provider)
	}

	f.clients[provider] = client
	f.log.Debug("Created new provider client", "provider", provider)
	return client, nil
}

// CachedClientCount returns the number of cached clients (for testing/debugging).
func (f *Factory) CachedClientCount() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.clients)
}
