package stringprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSubtasks_TwoTasks(t *testing.T) {
	doc := "Sub-Task 1: Do X\nSub-Task 2: Do Y"
	subtasks := ExtractSubtasks(doc)

	require.Len(t, subtasks, 2)
	assert.Equal(t, Subtask{Number: "1", Body: "Do X"}, subtasks[0])
	assert.Equal(t, Subtask{Number: "2", Body: "Do Y"}, subtasks[1])
}

func TestExtractSubtasks_TrimsWhitespace(t *testing.T) {
	doc := "Preamble text.\n\nSub-Task 1:   \n  Review the inputs.  \n\nSub-Task 2:\nWrite the prompt.\n"
	subtasks := ExtractSubtasks(doc)

	require.Len(t, subtasks, 2)
	assert.Equal(t, "Review the inputs.", subtasks[0].Body)
	assert.Equal(t, "Write the prompt.", subtasks[1].Body)
}

func TestExtractSubtasks_NoMarkers(t *testing.T) {
	assert.Empty(t, ExtractSubtasks("just a regular document"))
	assert.Empty(t, ExtractSubtasks(""))
}

func TestExtractSubtasks_CaseSensitiveMarker(t *testing.T) {
	// The marker phrase is case-sensitive as written.
	assert.Empty(t, ExtractSubtasks("sub-task 1: lowercase does not count"))
	assert.Empty(t, ExtractSubtasks("SUB-TASK 1: neither does uppercase"))
}

func TestExtractSubtasks_DuplicateNumberOverwritesInPlace(t *testing.T) {
	doc := "Sub-Task 1: first\nSub-Task 2: middle\nSub-Task 1: second"
	subtasks := ExtractSubtasks(doc)

	require.Len(t, subtasks, 2)
	assert.Equal(t, Subtask{Number: "1", Body: "second"}, subtasks[0])
	assert.Equal(t, Subtask{Number: "2", Body: "middle"}, subtasks[1])
}

func TestExtractSubtasks_NumbersAreOpaqueKeys(t *testing.T) {
	// Numbers are not sorted or validated for contiguity.
	doc := "Sub-Task 7: seven\nSub-Task 3: three"
	subtasks := ExtractSubtasks(doc)

	require.Len(t, subtasks, 2)
	assert.Equal(t, "7", subtasks[0].Number)
	assert.Equal(t, "3", subtasks[1].Number)
}

func TestExtractSubtasks_MarkerAtEnd(t *testing.T) {
	subtasks := ExtractSubtasks("Sub-Task 1: Do X\nSub-Task 2:")

	require.Len(t, subtasks, 2)
	assert.Equal(t, "Do X", subtasks[0].Body)
	assert.Equal(t, "", subtasks[1].Body)
}
