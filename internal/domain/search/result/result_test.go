package result

import (
	"testing"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
)

func TestNew(t *testing.T) {
	doc := document.Reconstruct("doc-1", "bot", "hello", nil)
	r := New(doc, 0.95)

	if r.Key() != "doc-1" {
		t.Errorf("Key() = %q", r.Key())
	}
	if r.Score() != 0.95 {
		t.Errorf("Score() = %f", r.Score())
	}
	d := r.Document()
	if d.Content() != "hello" {
		t.Errorf("Content() = %q", d.Content())
	}
}

func TestWithScore_DoesNotMutate(t *testing.T) {
	r := New(document.Reconstruct("1", "bot", "x", nil), 0.5)
	r2 := r.WithScore(0.9)
	if r.Score() != 0.5 {
		t.Errorf("original mutated: %f", r.Score())
	}
	if r2.Score() != 0.9 {
		t.Errorf("WithScore = %f", r2.Score())
	}
}
