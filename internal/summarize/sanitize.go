package summarize

import (
	"regexp"
	"strings"
)

// model output sometimes arrives wrapped in labels or meta commentary
var labelPrefix = regexp.MustCompile(`(?i)^(要約|summary|answer|出力)\s*[::]\s*`)

var boilerplate = []string{
	"はい、承知しました。",
	"以下に要約を示します。",
	"Here is the summary:",
	"Sure, here's a summary:",
}

// Sanitize strips labels, markdown fences, and conversational boilerplate
// from a model response, leaving only the summary text.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	for _, b := range boilerplate {
		s = strings.ReplaceAll(s, b, "")
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = labelPrefix.ReplaceAllString(strings.TrimSpace(line), "")
	}

	var kept []string
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
