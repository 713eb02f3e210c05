package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain/search/filter"
)

// scoreAlias is the name FT.SEARCH gives the KNN distance of each hit.
const scoreAlias = "__vector_score"

var (
	errNoIndex  = errors.New("search: index name is required")
	errNoVector = errors.New("search: query vector is required")
	errBadK     = errors.New("search: k must be positive")
	errBadLimit = errors.New("search: limit must be positive")
)

// SearchKNN returns the K nearest documents to q.Vector inside the filter scope.
// Entry scores are cosine similarities (1 - distance) floored at 0.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errNoIndex
	case len(q.Vector) == 0:
		return nil, errNoVector
	case q.K <= 0:
		return nil, errBadK
	}

	knn := "[KNN " + strconv.Itoa(q.K) + " @vector $BLOB]"
	query := "*=>" + knn
	if scope := buildFilter(q.Filters); scope != "" {
		query = "(" + scope + ")=>" + knn
	}

	var fields []string
	if len(q.ReturnFields) > 0 {
		fields = append(slices.Clone(q.ReturnFields), scoreAlias)
	}
	args := returnClause([]string{q.IndexName, query}, fields)
	args = append(args,
		"SORTBY", scoreAlias,
		"PARAMS", "2", "BLOB", string(encodeVector(q.Vector)),
		"DIALECT", "2",
	)

	res, err := s.ftSearch(ctx, args)
	if err != nil {
		return nil, err
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		raw, ok := e.Fields[scoreAlias]
		if !ok {
			continue
		}
		delete(e.Fields, scoreAlias)
		if dist, err := strconv.ParseFloat(raw, 64); err == nil {
			e.Score = max(0, 1-dist)
		}
	}
	return res, nil
}

// SearchList pages through documents matching the filter, in index order.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errNoIndex
	case q.Limit <= 0:
		return nil, errBadLimit
	}

	query := buildFilter(q.Filters)
	if query == "" {
		query = "*"
	}
	args := returnClause([]string{q.IndexName, query}, q.ReturnFields)
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)
	return s.ftSearch(ctx, args)
}

func (s *Store) ftSearch(ctx context.Context, args []string) (*db.SearchResult, error) {
	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseSearchResult(raw)
}

func returnClause(args, fields []string) []string {
	if len(fields) == 0 {
		return args
	}
	args = append(args, "RETURN", strconv.Itoa(len(fields)))
	return append(args, fields...)
}

// parseSearchResult decodes the RESP2 reply: total followed by key and field-list pairs.
// Malformed pairs are skipped rather than failing the whole page.
func parseSearchResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse search total: %w", err)
	}

	res := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		res.Entries = append(res.Entries, db.SearchEntry{Key: key, Fields: fieldMap(pairs)})
	}
	return res, nil
}

func fieldMap(pairs []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, nerr := pairs[j].ToString()
		value, verr := pairs[j+1].ToString()
		if nerr == nil && verr == nil {
			m[name] = value
		}
	}
	return m
}

// buildFilter renders the conjunction as space-separated TAG clauses.
func buildFilter(expr filter.Expression) string {
	conds := expr.Conditions()
	if len(conds) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, c := range conds {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("@" + c.Key() + ":{" + escapeTag(c.Match()) + "}")
	}
	return sb.String()
}

// escapeTag backslash-escapes every TAG separator and query operator so bot tokens
// with dashes or dots match literally.
func escapeTag(v string) string {
	const special = ",.<>{}[]\"':;!@#$%^&*()-+=~|/?`\\ "
	var sb strings.Builder
	sb.Grow(len(v))
	for _, r := range v {
		if strings.ContainsRune(special, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// encodeVector packs FLOAT32 little-endian, the blob layout vector fields expect.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}
