package result

import "github.com/kailas-cloud/ragchat/internal/domain/document"

// Result is a single retrieval hit. Score semantics depend on the retriever
// that produced it (BM25, cosine similarity or fused rank score).
type Result struct {
	doc   document.Document
	score float64
}

// New creates a retrieval result.
func New(doc document.Document, score float64) Result {
	return Result{doc: doc, score: score}
}

// Document returns the matched document.
func (r *Result) Document() document.Document { return r.doc }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Key returns the document identity used for deduplication.
func (r *Result) Key() string { return r.doc.Key() }

// WithScore returns a copy of the result with a different score.
func (r Result) WithScore(score float64) Result {
	r.score = score
	return r
}
