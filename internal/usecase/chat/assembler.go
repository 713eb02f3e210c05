package chat

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
)

const documentSeparator = "\n\n"

// TokenCounter returns the token length of a text.
type TokenCounter func(text string) int

// NewTokenCounter counts with the named tiktoken encoding, or approximates
// four bytes per token when the encoding cannot be loaded.
func NewTokenCounter(encoding string) TokenCounter {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return approxTokens
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}
}

func approxTokens(text string) int {
	return (len(text) + 3) / 4
}

// Assembler renders retrieved documents into a single context block.
type Assembler struct {
	maxTokens int
	count     TokenCounter
}

// NewAssembler creates an assembler. maxTokens <= 0 disables the budget.
func NewAssembler(maxTokens int, count TokenCounter) *Assembler {
	if count == nil {
		count = approxTokens
	}
	return &Assembler{maxTokens: maxTokens, count: count}
}

// Assemble joins documents in rank order. With a budget, it stops at the first
// document that would overflow it.
func (a *Assembler) Assemble(results []result.Result) string {
	parts := make([]string, 0, len(results))
	used := 0
	for i := range results {
		text := renderDocument(results[i].Document())
		if a.maxTokens > 0 {
			n := a.count(text)
			if len(parts) > 0 {
				n += a.count(documentSeparator)
			}
			if used+n > a.maxTokens {
				break
			}
			used += n
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, documentSeparator)
}

func renderDocument(d document.Document) string {
	title, summary := d.Title(), d.Summary()
	if title == "" && summary == "" {
		return d.Content()
	}
	return "Title: " + title + "\nSummary: " + summary + "\nContent: " + d.Content()
}
