package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// DefaultLexicalK is the number of lexical hits kept per query.
const DefaultLexicalK = 3

var lower = cases.Lower(language.Und)

// tokenize lowercases, applies NFKC and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	text = lower.String(norm.NFKC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// bm25Index is an in-memory Okapi BM25 index over a fixed corpus.
type bm25Index struct {
	docs   []document.Document
	tf     []map[string]int
	length []int
	df     map[string]int
	avgLen float64
}

func newBM25Index(docs []document.Document) *bm25Index {
	idx := &bm25Index{
		docs:   docs,
		tf:     make([]map[string]int, len(docs)),
		length: make([]int, len(docs)),
		df:     make(map[string]int),
	}

	total := 0
	for i := range docs {
		tokens := tokenize(docs[i].Content())
		freq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		for tok := range freq {
			idx.df[tok]++
		}
		idx.tf[i] = freq
		idx.length[i] = len(tokens)
		total += len(tokens)
	}
	if len(docs) > 0 {
		idx.avgLen = float64(total) / float64(len(docs))
	}
	return idx
}

func (idx *bm25Index) idf(term string) float64 {
	n := float64(idx.df[term])
	total := float64(len(idx.docs))
	return math.Log((total-n+0.5)/(n+0.5) + 1)
}

func (idx *bm25Index) score(i int, terms []string) float64 {
	if idx.avgLen == 0 {
		return 0
	}
	lenNorm := bm25K1 * (1 - bm25B + bm25B*float64(idx.length[i])/idx.avgLen)
	var s float64
	for _, term := range terms {
		f := float64(idx.tf[i][term])
		if f == 0 {
			continue
		}
		s += idx.idf(term) * f * (bm25K1 + 1) / (f + lenNorm)
	}
	return s
}

// search returns up to k documents with a positive score. Ties keep corpus order.
func (idx *bm25Index) search(query string, k int) []result.Result {
	terms := tokenize(query)
	if len(terms) == 0 || k <= 0 {
		return nil
	}

	hits := make([]result.Result, 0, len(idx.docs))
	for i := range idx.docs {
		if s := idx.score(i, terms); s > 0 {
			hits = append(hits, result.New(idx.docs[i], s))
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score() > hits[b].Score()
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Lexical is a BM25 retriever over a per-request snapshot of the tenant corpus.
type Lexical struct {
	corpus CorpusReader
	k      int
}

// NewLexical creates a lexical retriever. k <= 0 uses DefaultLexicalK.
func NewLexical(corpus CorpusReader, k int) *Lexical {
	if k <= 0 {
		k = DefaultLexicalK
	}
	return &Lexical{corpus: corpus, k: k}
}

// Retrieve ranks the tenant's documents against the query.
// A corpus failure is logged and yields no results.
func (l *Lexical) Retrieve(ctx context.Context, tenantID, query string) []result.Result {
	docs, err := l.corpus.FetchAll(ctx, tenantID)
	if err != nil {
		metrics.RetrievalFailuresTotal.WithLabelValues("lexical").Inc()
		logger.FromContext(ctx).Warn("Lexical retrieval failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return nil
	}

	hits := newBM25Index(docs).search(query, l.k)
	metrics.RetrievalResults.WithLabelValues("lexical").Observe(float64(len(hits)))
	return hits
}
