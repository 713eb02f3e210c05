package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
	"github.com/kailas-cloud/ragchat/internal/domain/prompt"
)

// State says whether the question needs rewriting before retrieval.
type State int

// Condenser states.
const (
	StateRaw State = iota
	StateCondensed
)

func (s State) String() string {
	if s == StateCondensed {
		return "condensed"
	}
	return "raw"
}

func stateFor(history []conversation.Turn) State {
	if len(history) == 0 {
		return StateRaw
	}
	return StateCondensed
}

// Condenser rewrites a follow-up question into a standalone query using the history.
type Condenser struct {
	completer domain.Completer
}

// NewCondenser creates a condenser.
func NewCondenser(completer domain.Completer) *Condenser {
	return &Condenser{completer: completer}
}

// Condense returns the question unchanged when there is no history. Otherwise it asks
// the completion service for a standalone rewrite, falling back to the question when
// the rewrite is blank.
func (c *Condenser) Condense(
	ctx context.Context, tmpl prompt.Template, history []conversation.Turn, question string,
) (string, error) {
	if stateFor(history) == StateRaw {
		return question, nil
	}

	msg, err := prompt.Render(tmpl, prompt.Vars{
		Question:    question,
		ChatHistory: conversation.Transcript(history),
	})
	if err != nil {
		return "", fmt.Errorf("standalone prompt: %w", err)
	}

	out, err := c.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{domain.UserMessage(msg)},
	})
	if err != nil {
		return "", fmt.Errorf("condense question: %w", err)
	}

	standalone := strings.TrimSpace(out.Text)
	if standalone == "" {
		return question, nil
	}
	return standalone, nil
}
