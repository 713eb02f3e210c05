package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Semantic defaults.
const (
	DefaultSemanticK      = 4
	DefaultScoreThreshold = 0.25
	DefaultExpansionCount = 3
)

const expansionPrompt = `You are an AI language model assistant. Write %d ` +
	`different versions of the user question below, so that a vector search can find relevant documents ` +
	`from several perspectives. Put each version on its own line and write nothing else.
Original question: %s`

// ExpansionConfig controls multi-query expansion.
type ExpansionConfig struct {
	Enabled         bool
	Queries         int
	IncludeOriginal bool
}

// SemanticConfig tunes the semantic retriever.
type SemanticConfig struct {
	K         int
	Threshold float64
	Expansion ExpansionConfig
}

func (c SemanticConfig) withDefaults() SemanticConfig {
	if c.K <= 0 {
		c.K = DefaultSemanticK
	}
	if c.Threshold < 0 {
		c.Threshold = 0
	}
	if c.Expansion.Queries <= 0 {
		c.Expansion.Queries = DefaultExpansionCount
	}
	return c
}

// Semantic is an embedding retriever with optional query expansion.
type Semantic struct {
	embed     domain.Embedder
	store     VectorSearcher
	completer domain.Completer
	cfg       SemanticConfig
}

// NewSemantic creates a semantic retriever. completer is only used for expansion.
func NewSemantic(embed domain.Embedder, store VectorSearcher, completer domain.Completer, cfg SemanticConfig) *Semantic {
	return &Semantic{embed: embed, store: store, completer: completer, cfg: cfg.withDefaults()}
}

// Direct embeds the query and returns tenant hits with similarity at or above the threshold.
func (s *Semantic) Direct(ctx context.Context, tenantID, query string) ([]result.Result, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.store.Search(ctx, tenantID, emb.Embedding, s.cfg.K)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	kept := hits[:0]
	for _, h := range hits {
		if h.Score() >= s.cfg.Threshold {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// Expanded runs Direct for several paraphrases of the query concurrently and
// unions the hits, keeping the highest score per document. If paraphrasing
// fails the original query is used alone.
func (s *Semantic) Expanded(ctx context.Context, tenantID, query string) ([]result.Result, error) {
	if !s.cfg.Expansion.Enabled || s.completer == nil {
		return s.Direct(ctx, tenantID, query)
	}

	queries, err := s.paraphrase(ctx, query)
	if err != nil {
		metrics.RetrievalFailuresTotal.WithLabelValues("expansion").Inc()
		logger.FromContext(ctx).Warn("Query expansion failed, using original query", zap.Error(err))
		return s.Direct(ctx, tenantID, query)
	}
	if s.cfg.Expansion.IncludeOriginal {
		queries = append(queries, query)
	}

	// A failed sub-query contributes nothing; only a total failure is an error.
	var (
		perQuery = make([][]result.Result, len(queries))
		errs     = make([]error, len(queries))
		g        errgroup.Group
	)
	for i, q := range queries {
		g.Go(func() error {
			hits, err := s.Direct(ctx, tenantID, q)
			if err != nil {
				metrics.RetrievalFailuresTotal.WithLabelValues("expansion_query").Inc()
				logger.FromContext(ctx).Warn("Expanded sub-query failed", zap.Int("query", i), zap.Error(err))
				errs[i] = err
				return nil
			}
			perQuery[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(queries) {
		return nil, fmt.Errorf("all %d expanded queries failed: %w", failed, errors.Join(errs...))
	}

	return unionMax(perQuery), nil
}

func (s *Semantic) paraphrase(ctx context.Context, query string) ([]string, error) {
	msg := fmt.Sprintf(expansionPrompt, s.cfg.Expansion.Queries, query)
	out, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{domain.UserMessage(msg)},
	})
	if err != nil {
		return nil, fmt.Errorf("generate paraphrases: %w", err)
	}

	queries := parseLines(out.Text, s.cfg.Expansion.Queries)
	if len(queries) == 0 {
		return nil, errors.New("generate paraphrases: empty reply")
	}
	return queries, nil
}

// parseLines splits a reply into at most limit non-empty lines.
func parseLines(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}

// unionMax deduplicates by document identity keeping the max score.
// Output is score descending, ties in first-seen order.
func unionMax(lists [][]result.Result) []result.Result {
	var out []result.Result
	pos := make(map[string]int)

	for _, list := range lists {
		for _, r := range list {
			key := r.Key()
			if i, ok := pos[key]; ok {
				if r.Score() > out[i].Score() {
					out[i] = out[i].WithScore(r.Score())
				}
				continue
			}
			pos[key] = len(out)
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})
	return out
}
