package session

import (
	"strings"
	"time"

	"promptd/internal/config"
	"promptd/internal/logger"
	"promptd/pkg/prompttypes"
)

// Resolver resolves a model-selection key into a bound LLM client, its model
// configuration, and the resolved model name.
type Resolver interface {
	Resolve(modelKey string) (prompttypes.LLMClient, *prompttypes.ModelConfig, string, error)
}

// Manager owns session lifecycle: it creates, restarts, and destroys thread
// records in the store, and decides the initial system instructions from the
// requested assistant mode and resolved model.
type Manager struct {
	store    *Store
	resolver Resolver
	prompts  config.PromptLibrary
}

// NewManager creates a session lifecycle manager.
func NewManager(store *Store, resolver Resolver, prompts config.PromptLibrary) *Manager {
	return &Manager{
		store:    store,
		resolver: resolver,
		prompts:  prompts,
	}
}

// Store exposes the underlying thread store.
func (m *Manager) Store() *Store {
	return m.store
}

// Prompts exposes the instruction-template library.
func (m *Manager) Prompts() config.PromptLibrary {
	return m.prompts
}

// Start initializes (or re-initializes) the thread with the given identifier.
//
// The model binding is resolved from modelKey, falling back to the default
// model when unset. System instructions are built from the resolved model and
// the tri-state assistant mode: nil adds neither mode instruction, false adds
// the task-decomposition instruction, true adds the prompt-generator
// instruction. A pre-existing thread keeps its conversation history; every
// other field is replaced and the first-turn flag is re-armed.
func (m *Manager) Start(threadID string, isPromptAssistant *bool, modelKey string) error {
	client, model, modelName, err := m.resolver.Resolve(modelKey)
	if err != nil {
		return err
	}

	var systemMessages []prompttypes.Message

	if strings.Contains(modelName, "gpt-5") {
		if text, ok := m.prompts.Instruction(config.PromptMarkdownInstruction); ok {
			systemMessages = append(systemMessages, NewMessage("system", text))
		}
	}

	switch {
	case isPromptAssistant == nil:
		// Neither mode instruction is added.
	case *isPromptAssistant:
		if text, ok := m.prompts.Instruction(config.PromptGenerator); ok {
			systemMessages = append(systemMessages, NewMessage("system", text))
		}
	default:
		if text, ok := m.prompts.Instruction(config.PromptTaskAnalysis); ok {
			systemMessages = append(systemMessages, NewMessage("system", text))
		}
	}

	now := time.Now()
	thread, exists := m.store.Get(threadID)
	if !exists {
		thread = &prompttypes.ChatThread{
			ID:        threadID,
			Messages:  make([]prompttypes.Message, 0),
			CreatedAt: now,
		}
	}

	// Restarting preserves conversation history; everything else is replaced.
	thread.SystemMessages = systemMessages
	thread.Streaming = config.IsStreamingModel(modelName)
	thread.FirstTurn = true
	thread.Client = client
	thread.Model = model
	thread.UpdatedAt = now

	m.store.Put(thread)

	logger.ThreadOperation("start", threadID,
		"model", modelName,
		"streaming", thread.Streaming,
		"system_messages", len(systemMessages),
		"existing_history", len(thread.Messages))
	return nil
}

// End removes the thread and reports whether it existed. Repeated calls for
// the same identifier return false.
func (m *Manager) End(threadID string) bool {
	removed := m.store.Delete(threadID)
	if removed {
		logger.Info("Thread state removed", "thread_id", threadID)
	} else {
		logger.Info("Thread not found", "thread_id", threadID)
	}
	return removed
}

// ClearAll ends every active thread. Called once at graceful shutdown.
func (m *Manager) ClearAll() {
	for _, id := range m.store.IDs() {
		m.End(id)
	}
}

// History returns the conversation history for a thread, if it exists.
func (m *Manager) History(threadID string) ([]prompttypes.Message, bool) {
	thread, ok := m.store.Get(threadID)
	if !ok {
		return nil, false
	}
	return thread.Messages, true
}

// ActiveThreads returns the identifiers of all active threads.
func (m *Manager) ActiveThreads() []string {
	return m.store.IDs()
}
