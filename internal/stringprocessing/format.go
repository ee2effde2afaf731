// Package stringprocessing provides pure text transforms for promptd.
// It includes the model-output formatter and the sub-task extractor used by
// the message router. All functions are stateless and never fail on malformed
// input; text that does not match simply passes through unchanged.
package stringprocessing

import (
	"fmt"
	"regexp"
)

// formattedTags lists the tag names converted to markdown sections, in the
// order they are applied.
var formattedTags = []string{"Inputs", "Instructions Structure", "Instructions"}

type tagPatterns struct {
	opening *regexp.Regexp
	closing *regexp.Regexp
	header  string
}

var tagReplacements []tagPatterns

func init() {
	for _, tag := range formattedTags {
		tagReplacements = append(tagReplacements, tagPatterns{
			opening: regexp.MustCompile(`(?i)<` + regexp.QuoteMeta(tag) + `>`),
			closing: regexp.MustCompile(`(?i)</` + regexp.QuoteMeta(tag) + `>`),
			header:  fmt.Sprintf("## %s\n```xml", tag),
		})
	}
}

// FormatModelOutput replaces XML-style tag pairs in model output with markdown
// formatting: each opening tag becomes a markdown header followed by the start
// of an xml-fenced code block, and each closing tag becomes the closing fence.
// Matching is case-insensitive and purely textual; a tag split across two
// streamed fragments is not detected.
func FormatModelOutput(content string) string {
	formatted := content
	for _, t := range tagReplacements {
		formatted = t.opening.ReplaceAllString(formatted, t.header)
		formatted = t.closing.ReplaceAllString(formatted, "```")
	}
	return formatted
}
