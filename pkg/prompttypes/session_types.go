// Package prompttypes defines session and conversation management types for promptd.
// This file contains the core types for tracking per-thread conversation history
// and the runtime state the message router operates on.
package prompttypes

import "time"

// Message represents a single message in the conversation history.
// Messages track the role (system/user/assistant), content, and timestamp for each interaction.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatThread represents one logical conversation with an LLM provider.
// A thread is keyed by a caller-supplied identifier and holds its own history,
// the system instructions pending injection on the first turn, and the runtime
// binding (client + model) used to route conversation-scoped gateway calls.
type ChatThread struct {
	ID string `json:"id"`

	// Messages is the ordered conversation history. It is append-only except
	// for the full reset performed when entering the prompt-generation workflow.
	Messages []Message `json:"messages"`

	// SystemMessages are injected into Messages once, on the first turn only.
	SystemMessages []Message `json:"system_messages"`

	// Streaming is fixed when the thread is (re)started, derived from the
	// resolved model name.
	Streaming bool `json:"streaming"`

	// FirstTurn is true until the first message exchange consumes the pending
	// system instructions. A workflow reset re-arms it.
	FirstTurn bool `json:"first_turn"`

	// Client and Model form the runtime binding for this thread. They are not
	// serialized; a thread's binding lives exactly as long as the process.
	Client LLMClient    `json:"-"`
	Model  *ModelConfig `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
