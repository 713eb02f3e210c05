// Package prompt renders tenant prompt templates through a fixed set of slots.
package prompt

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// ErrInvalidTemplate signals a template that references an unknown slot or has unbalanced braces.
var ErrInvalidTemplate = errors.New("invalid prompt template")

// Template is a prompt with f-string placeholders such as {question}.
// Literal braces are written as {{ and }}.
type Template string

// Recognized template slots.
const (
	SlotQuestion           = "question"
	SlotCurrentQuestion    = "current_question"
	SlotChatHistory        = "chat_history"
	SlotContext            = "context"
	SlotFormatInstructions = "format_instructions"
)

// Vars holds the values for every recognized slot. Unused slots are ignored.
type Vars struct {
	Question           string
	CurrentQuestion    string
	ChatHistory        string
	Context            string
	FormatInstructions string
}

func (v Vars) values() map[string]any {
	return map[string]any{
		SlotQuestion:           v.Question,
		SlotCurrentQuestion:    v.CurrentQuestion,
		SlotChatHistory:        v.ChatHistory,
		SlotContext:            v.Context,
		SlotFormatInstructions: v.FormatInstructions,
	}
}

// Render substitutes vars into the template.
func Render(t Template, v Vars) (string, error) {
	out, err := prompts.RenderTemplate(string(t), prompts.TemplateFormatFString, v.values())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	return out, nil
}
