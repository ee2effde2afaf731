package stringprocessing

import (
	"regexp"
	"strings"
)

// subtaskPattern matches the literal marker introducing one sub-task in a task
// analysis document. The phrase is case-sensitive.
var subtaskPattern = regexp.MustCompile(`Sub-Task (\d+):`)

// Subtask is one numbered unit of work extracted from a task analysis document.
// The number is treated as an opaque key; it is neither validated for
// contiguity nor parsed beyond the marker match.
type Subtask struct {
	Number string
	Body   string
}

// ExtractSubtasks parses a task analysis document into its numbered sub-tasks,
// in document order. The body of each sub-task is the trimmed text between its
// marker and the next marker (or the end of the document). A duplicate number
// overwrites its predecessor in place, keeping the original position.
// A document without markers yields an empty slice.
func ExtractSubtasks(document string) []Subtask {
	matches := subtaskPattern.FindAllStringSubmatchIndex(document, -1)
	if len(matches) == 0 {
		return nil
	}

	subtasks := make([]Subtask, 0, len(matches))
	seen := make(map[string]int, len(matches))

	for i, match := range matches {
		number := document[match[2]:match[3]]

		end := len(document)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(document[match[1]:end])

		if at, dup := seen[number]; dup {
			subtasks[at].Body = body
			continue
		}
		seen[number] = len(subtasks)
		subtasks = append(subtasks, Subtask{Number: number, Body: body})
	}

	return subtasks
}
