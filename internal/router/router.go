// Package router implements the per-thread message routing state machine for
// promptd. Given an incoming message and an existing session it decides
// between the direct-response and decomposition-generation workflows, and
// between streaming and buffered delivery.
package router

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"promptd/internal/config"
	"promptd/internal/logger"
	"promptd/internal/session"
	"promptd/internal/stringprocessing"
	"promptd/pkg/prompttypes"
)

// startHint is returned verbatim when a message arrives for a thread that was
// never started.
const startHint = "Please Type 'start'/ 'start prompt assistant'/ 'start agent assistant' to start the session"

// Payload is a buffered routing result, serialized as the /api/message JSON
// response body.
type Payload struct {
	Message             string            `json:"message"`
	IndividualResponses map[string]string `json:"individual_responses,omitzero"`
}

// Reply is the discriminated result of routing one message: exactly one of
// Stream and Payload is set. A non-nil Stream delivers formatted fragments
// lazily; the producer suspends between fragments while waiting on the
// gateway.
type Reply struct {
	Stream  <-chan string
	Payload *Payload
}

// Router routes incoming messages against the session store.
type Router struct {
	sessions *session.Manager
	log      *log.Logger
}

// New creates a message router on top of the session manager.
func New(sessions *session.Manager) *Router {
	return &Router{
		sessions: sessions,
		log:      logger.NewStyledLogger("router"),
	}
}

// Route processes one user message for the given thread.
//
// An unknown thread yields an instructional payload without ever touching the
// gateway. On the thread's first turn the pending system instructions are
// appended to history before the message is dispatched. A message asking to
// generate prompts enters the decomposition-generation workflow; everything
// else gets a direct response. Gateway failures never escape this boundary:
// they are converted to error-text payloads or fragments.
func (r *Router) Route(threadID, message string) Reply {
	thread, ok := r.sessions.Store().Get(threadID)
	if !ok {
		r.log.Debug("Message for unknown thread", "thread_id", threadID)
		return Reply{Payload: &Payload{Message: startHint}}
	}

	if thread.FirstTurn {
		thread.Messages = append(thread.Messages, thread.SystemMessages...)
		thread.FirstTurn = false
		r.log.Debug("System instructions injected", "thread_id", threadID, "count", len(thread.SystemMessages))
	}

	lower := strings.ToLower(message)
	if strings.Contains(lower, "generate") && (strings.Contains(lower, "prompt") || strings.Contains(lower, "prompts")) {
		return r.generatePrompts(thread)
	}

	return r.directResponse(thread, message)
}

// directResponse dispatches the raw message against the thread's binding.
func (r *Router) directResponse(thread *prompttypes.ChatThread, message string) Reply {
	if thread.Streaming {
		out := make(chan string)
		go func() {
			defer close(out)
			if err := r.relayStream(thread, message, out); err != nil {
				r.log.Error("Streaming error", "thread_id", thread.ID, "error", err)
				out <- fmt.Sprintf("Error: %s", err)
			}
		}()
		return Reply{Stream: out}
	}

	content, err := r.invoke(thread, message)
	if err != nil {
		r.log.Error("Non-streaming error", "thread_id", thread.ID, "error", err)
		return Reply{Payload: &Payload{Message: fmt.Sprintf("Error: %s", err)}}
	}
	return Reply{Payload: &Payload{Message: content}}
}

// generatePrompts runs the decomposition-generation workflow: extract the
// sub-tasks from the prior task-analysis turn, reset the conversational state
// to the prompt-generator instruction, then drive one gateway call per
// sub-task on the same binding so the model accumulates context across them.
func (r *Router) generatePrompts(thread *prompttypes.ChatThread) Reply {
	if len(thread.Messages) == 0 {
		r.log.Error("No prior turn to extract sub-tasks from", "thread_id", thread.ID)
		return Reply{Payload: &Payload{Message: "Error: no task analysis document found in conversation history"}}
	}

	lastTurn := thread.Messages[len(thread.Messages)-1]
	subtasks := stringprocessing.ExtractSubtasks(lastTurn.Content)
	r.log.Debug("Sub-tasks extracted", "thread_id", thread.ID, "count", len(subtasks))

	// Full reset: history is wiped and re-seeded with the prompt-generator
	// instruction alone, regardless of the mode the thread was started with.
	// The start-time instructions are dropped so the re-armed first turn does
	// not inject them into the new conversation.
	generatorText, _ := r.sessions.Prompts().Instruction(config.PromptGenerator)
	thread.Messages = []prompttypes.Message{session.NewMessage("system", generatorText)}
	thread.SystemMessages = nil
	thread.FirstTurn = true

	if thread.Streaming {
		out := make(chan string)
		go func() {
			defer close(out)
			for _, st := range subtasks {
				out <- fmt.Sprintf("\n--- Processing Task %s ---\n", st.Number)
				if err := r.relayStream(thread, st.Body, out); err != nil {
					r.log.Error("Streaming error", "thread_id", thread.ID, "task", st.Number, "error", err)
					out <- fmt.Sprintf("Error: %s", err)
					return
				}
				out <- "\n\n"
			}
		}()
		return Reply{Stream: out}
	}

	responses := make(map[string]string, len(subtasks))
	var combined strings.Builder
	for i, st := range subtasks {
		content, err := r.invoke(thread, st.Body)
		if err != nil {
			// The whole batch is discarded; partial results are never returned.
			r.log.Error("Non-streaming error", "thread_id", thread.ID, "task", st.Number, "error", err)
			return Reply{Payload: &Payload{Message: fmt.Sprintf("Error: %s", err)}}
		}
		responses["task_"+st.Number] = content

		if i > 0 {
			combined.WriteString("\n\n")
		}
		combined.WriteString(fmt.Sprintf("--- Task %s ---\n%s", st.Number, content))
	}

	return Reply{Payload: &Payload{Message: combined.String(), IndividualResponses: responses}}
}

// invoke appends the user message, performs one synchronous gateway call with
// the full history, records the raw assistant turn, and returns the formatted
// response text. On failure the pending user message is rolled back so the
// history only ever holds completed exchanges.
func (r *Router) invoke(thread *prompttypes.ChatThread, message string) (string, error) {
	thread.Messages = append(thread.Messages, session.NewMessage("user", message))

	content, err := thread.Client.SendChatCompletion(thread, thread.Model)
	if err != nil {
		thread.Messages = thread.Messages[:len(thread.Messages)-1]
		return "", err
	}

	thread.Messages = append(thread.Messages, session.NewMessage("assistant", content))
	return stringprocessing.FormatModelOutput(content), nil
}

// relayStream performs one streaming gateway call, forwarding each fragment
// through out after per-fragment formatting. The raw accumulated response is
// recorded as the assistant turn once the stream completes. A fragment whose
// tag is split across two chunks is forwarded untransformed; per-fragment
// formatting does not reassemble tags.
func (r *Router) relayStream(thread *prompttypes.ChatThread, message string, out chan<- string) error {
	thread.Messages = append(thread.Messages, session.NewMessage("user", message))

	chunks, err := thread.Client.StreamChatCompletion(thread, thread.Model)
	if err != nil {
		thread.Messages = thread.Messages[:len(thread.Messages)-1]
		return err
	}

	var full strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return chunk.Error
		}
		if chunk.Content != "" {
			full.WriteString(chunk.Content)
			out <- stringprocessing.FormatModelOutput(chunk.Content)
		}
		if chunk.Done {
			break
		}
	}

	thread.Messages = append(thread.Messages, session.NewMessage("assistant", full.String()))
	return nil
}
