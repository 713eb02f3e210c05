package chat

import (
	"regexp"
	"strings"
)

// FallbackAnswer replaces an empty generated answer.
const FallbackAnswer = "Could you please rephrase the question with more context?"

const aiLabel = "AI:"

var thinkBlock = regexp.MustCompile(`(?s)\n?<think>.*?</think>\n?`)

// postprocess cleans a raw completion into the user-facing answer.
func postprocess(text string) string {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, aiLabel); ok {
		text = strings.TrimSpace(rest)
	}
	text = strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
	if text == "" {
		return FallbackAnswer
	}
	return text
}
