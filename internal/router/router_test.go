package router

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptd/internal/session"
	"promptd/internal/testutils"
	"promptd/pkg/prompttypes"
)

// newTestRouter starts one thread backed by the mock gateway and returns the
// router, the manager, and the thread record for direct history setup.
func newTestRouter(t *testing.T, client *testutils.MockLLMClient, streaming bool) (*Router, *session.Manager, *prompttypes.ChatThread) {
	t.Helper()

	modelName := "gpt-4o"
	if streaming {
		modelName = "gemini-2.0-flash"
	}
	resolver := &testutils.StubResolver{Client: client, ModelName: modelName}
	mgr := session.NewManager(session.NewStore(), resolver, testutils.TestPrompts())
	require.NoError(t, mgr.Start("thread-1", nil, ""))

	thread, ok := mgr.Store().Get("thread-1")
	require.True(t, ok)
	return New(mgr), mgr, thread
}

func drain(t *testing.T, reply Reply) []string {
	t.Helper()
	require.NotNil(t, reply.Stream)

	var fragments []string
	for f := range reply.Stream {
		fragments = append(fragments, f)
	}
	return fragments
}

func TestRoute_UnknownThread(t *testing.T) {
	client := &testutils.MockLLMClient{}
	r, _, _ := newTestRouter(t, client, false)

	reply := r.Route("never-started", "hello")

	require.NotNil(t, reply.Payload)
	assert.Equal(t, "Please Type 'start'/ 'start prompt assistant'/ 'start agent assistant' to start the session", reply.Payload.Message)
	assert.Empty(t, client.Calls, "unknown thread must never reach the gateway")
}

func TestRoute_DirectResponseBuffered(t *testing.T) {
	client := &testutils.MockLLMClient{Responses: []string{"a fine answer"}}
	r, _, thread := newTestRouter(t, client, false)

	reply := r.Route("thread-1", "go")

	require.NotNil(t, reply.Payload)
	assert.Equal(t, "a fine answer", reply.Payload.Message)
	assert.Nil(t, reply.Payload.IndividualResponses)
	assert.Equal(t, []string{"go"}, client.Calls)

	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "user", thread.Messages[0].Role)
	assert.Equal(t, "go", thread.Messages[0].Content)
	assert.Equal(t, "assistant", thread.Messages[1].Role)
	assert.Equal(t, "a fine answer", thread.Messages[1].Content)

	// Direct responses carry no individual_responses key at all.
	body, err := json.Marshal(reply.Payload)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "individual_responses")
}

func TestRoute_FirstTurnInjectsSystemInstructions(t *testing.T) {
	client := &testutils.MockLLMClient{}
	resolver := &testutils.StubResolver{Client: client, ModelName: "gpt-4o"}
	mgr := session.NewManager(session.NewStore(), resolver, testutils.TestPrompts())
	isAgent := false
	require.NoError(t, mgr.Start("thread-1", &isAgent, ""))
	r := New(mgr)

	r.Route("thread-1", "go")

	thread, _ := mgr.Store().Get("thread-1")
	assert.False(t, thread.FirstTurn)
	require.GreaterOrEqual(t, len(thread.Messages), 3)
	assert.Equal(t, "system", thread.Messages[0].Role)
	assert.Equal(t, "decompose the task", thread.Messages[0].Content)
	assert.Equal(t, "user", thread.Messages[1].Role)

	// Second turn must not inject the instructions again.
	r.Route("thread-1", "continue")
	thread, _ = mgr.Store().Get("thread-1")
	systemCount := 0
	for _, msg := range thread.Messages {
		if msg.Role == "system" {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount)
}

func TestRoute_DirectResponseFormatsOutput(t *testing.T) {
	raw := "<Instructions>\nDo it.\n</Instructions>"
	client := &testutils.MockLLMClient{Responses: []string{raw}}
	r, _, thread := newTestRouter(t, client, false)

	reply := r.Route("thread-1", "go")

	require.NotNil(t, reply.Payload)
	assert.Equal(t, "## Instructions\n```xml\nDo it.\n```", reply.Payload.Message)
	// History keeps the raw response, not the formatted copy.
	assert.Equal(t, raw, thread.Messages[len(thread.Messages)-1].Content)
}

func TestRoute_DirectResponseBufferedError(t *testing.T) {
	client := &testutils.MockLLMClient{Err: errors.New("upstream unavailable")}
	r, _, thread := newTestRouter(t, client, false)

	reply := r.Route("thread-1", "go")

	require.NotNil(t, reply.Payload)
	assert.Equal(t, "Error: upstream unavailable", reply.Payload.Message)
	// The pending user message is rolled back on failure.
	assert.Empty(t, thread.Messages)
}

func TestRoute_DirectResponseStreaming(t *testing.T) {
	client := &testutils.MockLLMClient{Chunks: [][]string{{"Hello", " world"}}}
	r, _, thread := newTestRouter(t, client, true)

	fragments := drain(t, r.Route("thread-1", "go"))

	assert.Equal(t, []string{"Hello", " world"}, fragments)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "Hello world", thread.Messages[1].Content)
}

func TestRoute_DirectResponseStreamingError(t *testing.T) {
	client := &testutils.MockLLMClient{
		Chunks:    [][]string{{"partial"}},
		StreamErr: errors.New("stream reset"),
	}
	r, _, _ := newTestRouter(t, client, true)

	fragments := drain(t, r.Route("thread-1", "go"))

	require.NotEmpty(t, fragments)
	assert.Equal(t, "Error: stream reset", fragments[len(fragments)-1])
}

func TestRoute_GeneratePromptsBuffered(t *testing.T) {
	client := &testutils.MockLLMClient{Responses: []string{"prompt for X", "prompt for Y"}}
	r, _, thread := newTestRouter(t, client, false)
	thread.FirstTurn = false
	thread.Messages = append(thread.Messages,
		session.NewMessage("user", "analyze my task"),
		session.NewMessage("assistant", "Sub-Task 1: Do X\nSub-Task 2: Do Y"))

	reply := r.Route("thread-1", "now generate the prompts")

	require.NotNil(t, reply.Payload)
	assert.Equal(t, []string{"Do X", "Do Y"}, client.Calls)
	assert.Equal(t, map[string]string{
		"task_1": "prompt for X",
		"task_2": "prompt for Y",
	}, reply.Payload.IndividualResponses)
	assert.Equal(t, "--- Task 1 ---\nprompt for X\n\n--- Task 2 ---\nprompt for Y", reply.Payload.Message)

	// History was reset to the generator instruction, then grew one exchange
	// per sub-task on the same thread.
	require.GreaterOrEqual(t, len(thread.Messages), 5)
	assert.Equal(t, "system", thread.Messages[0].Role)
	assert.Equal(t, "generate prompts", thread.Messages[0].Content)
	assert.True(t, thread.FirstTurn)
}

func TestRoute_TurnAfterResetKeepsOnlyGeneratorInstruction(t *testing.T) {
	client := &testutils.MockLLMClient{}
	resolver := &testutils.StubResolver{Client: client, ModelName: "gpt-4o"}
	mgr := session.NewManager(session.NewStore(), resolver, testutils.TestPrompts())
	isAgent := false
	require.NoError(t, mgr.Start("thread-1", &isAgent, ""))
	r := New(mgr)

	r.Route("thread-1", "analyze my task")
	thread, _ := mgr.Store().Get("thread-1")
	thread.Messages = append(thread.Messages,
		session.NewMessage("assistant", "Sub-Task 1: Do X"))

	r.Route("thread-1", "now generate prompts")
	r.Route("thread-1", "refine the first one")

	// The reset replaces the conversation with the generator instruction; the
	// start-time decomposition instruction must not reappear on later turns.
	var systems []string
	for _, msg := range thread.Messages {
		if msg.Role == "system" {
			systems = append(systems, msg.Content)
		}
	}
	assert.Equal(t, []string{"generate prompts"}, systems)
	assert.Empty(t, thread.SystemMessages)
	assert.False(t, thread.FirstTurn)
}

func TestRoute_GeneratePromptsClassification(t *testing.T) {
	tests := []struct {
		message    string
		decomposes bool
	}{
		{"generate prompts", true},
		{"Generate the PROMPT now", true},
		{"please GENERATE a prompt for each", true},
		{"generate code", false},
		{"write some prompts", false},
		{"how do prompts work", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			client := &testutils.MockLLMClient{}
			r, _, thread := newTestRouter(t, client, false)
			thread.FirstTurn = false
			thread.Messages = append(thread.Messages,
				session.NewMessage("assistant", "Sub-Task 1: Do X"))

			reply := r.Route("thread-1", tt.message)

			require.NotNil(t, reply.Payload)
			if tt.decomposes {
				assert.Equal(t, []string{"Do X"}, client.Calls)
			} else {
				assert.Equal(t, []string{tt.message}, client.Calls)
			}
		})
	}
}

func TestRoute_GeneratePromptsNoPriorTurn(t *testing.T) {
	client := &testutils.MockLLMClient{}
	r, _, thread := newTestRouter(t, client, false)
	thread.FirstTurn = false

	reply := r.Route("thread-1", "generate prompts")

	require.NotNil(t, reply.Payload)
	assert.Equal(t, "Error: no task analysis document found in conversation history", reply.Payload.Message)
	assert.Empty(t, client.Calls)
}

func TestRoute_GeneratePromptsNoMarkers(t *testing.T) {
	client := &testutils.MockLLMClient{}
	r, _, thread := newTestRouter(t, client, false)
	thread.FirstTurn = false
	thread.Messages = append(thread.Messages,
		session.NewMessage("assistant", "no markers in this document"))

	reply := r.Route("thread-1", "generate prompts")

	require.NotNil(t, reply.Payload)
	assert.Equal(t, "", reply.Payload.Message)
	assert.Empty(t, reply.Payload.IndividualResponses)
	assert.Empty(t, client.Calls)

	// The empty map still appears on the wire.
	body, err := json.Marshal(reply.Payload)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"individual_responses":{}`)
	// The reset still happens even when nothing was extracted.
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, "system", thread.Messages[0].Role)
}

func TestRoute_GeneratePromptsBufferedErrorDiscardsBatch(t *testing.T) {
	client := &testutils.MockLLMClient{Err: errors.New("quota exceeded")}
	r, _, thread := newTestRouter(t, client, false)
	thread.FirstTurn = false
	thread.Messages = append(thread.Messages,
		session.NewMessage("assistant", "Sub-Task 1: Do X\nSub-Task 2: Do Y"))

	reply := r.Route("thread-1", "generate prompts")

	require.NotNil(t, reply.Payload)
	assert.Equal(t, "Error: quota exceeded", reply.Payload.Message)
	assert.Nil(t, reply.Payload.IndividualResponses)
}

func TestRoute_GeneratePromptsStreaming(t *testing.T) {
	client := &testutils.MockLLMClient{Chunks: [][]string{{"px1", "px2"}, {"py"}}}
	r, _, thread := newTestRouter(t, client, true)
	thread.FirstTurn = false
	thread.Messages = append(thread.Messages,
		session.NewMessage("assistant", "Sub-Task 1: Do X\nSub-Task 2: Do Y"))

	fragments := drain(t, r.Route("thread-1", "generate prompts"))

	assert.Equal(t, []string{
		"\n--- Processing Task 1 ---\n", "px1", "px2", "\n\n",
		"\n--- Processing Task 2 ---\n", "py", "\n\n",
	}, fragments)
	assert.Equal(t, []string{"Do X", "Do Y"}, client.Calls)
}

func TestRoute_GeneratePromptsStreamingErrorAborts(t *testing.T) {
	client := &testutils.MockLLMClient{
		Chunks:    [][]string{{"px"}},
		StreamErr: errors.New("stream reset"),
	}
	r, _, thread := newTestRouter(t, client, true)
	thread.FirstTurn = false
	thread.Messages = append(thread.Messages,
		session.NewMessage("assistant", "Sub-Task 1: Do X\nSub-Task 2: Do Y"))

	fragments := drain(t, r.Route("thread-1", "generate prompts"))

	assert.Equal(t, "Error: stream reset", fragments[len(fragments)-1])
	// Remaining sub-tasks are not processed after a failure.
	assert.Equal(t, []string{"Do X"}, client.Calls)
}

func TestRoute_AfterEndThreadIsUnknown(t *testing.T) {
	client := &testutils.MockLLMClient{}
	r, mgr, _ := newTestRouter(t, client, false)

	require.True(t, mgr.End("thread-1"))
	reply := r.Route("thread-1", "hello")

	require.NotNil(t, reply.Payload)
	assert.True(t, strings.HasPrefix(reply.Payload.Message, "Please Type 'start'"))
	assert.Empty(t, client.Calls)
}
