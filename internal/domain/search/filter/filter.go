// Package filter scopes index queries with exact tag matches.
package filter

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// MaxConditions bounds a single expression; FT.SEARCH parses the whole query per call.
const MaxConditions = 32

// ErrTooManyConditions is returned when an expression grows past MaxConditions.
var ErrTooManyConditions = fmt.Errorf("filter: more than %d conditions", MaxConditions)

// Condition is an exact match on a TAG field.
type Condition struct {
	key   string
	match string
}

// NewMatch builds a condition. Both sides must be non-empty: an empty tag never matches in FT.SEARCH.
func NewMatch(key, match string) (Condition, error) {
	switch {
	case key == "":
		return Condition{}, errors.New("filter: key is required")
	case match == "":
		return Condition{}, fmt.Errorf("filter: value is required for %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key is the TAG field name.
func (c Condition) Key() string { return c.key }

// Match is the exact value the field must hold.
func (c Condition) Match() string { return c.match }

// Expression is a conjunction of conditions. The zero value matches everything.
type Expression struct {
	all []Condition
}

// ForTenant scopes a query to one tenant's documents. Every retrieval call carries it.
func ForTenant(tenantID string) (Expression, error) {
	cond, err := NewMatch(domain.FieldTenantID, tenantID)
	if err != nil {
		return Expression{}, fmt.Errorf("tenant scope: %w", err)
	}
	return Expression{all: []Condition{cond}}, nil
}

// And returns a copy of e that also requires c.
func (e Expression) And(c Condition) (Expression, error) {
	if len(e.all) >= MaxConditions {
		return Expression{}, ErrTooManyConditions
	}
	all := make([]Condition, len(e.all), len(e.all)+1)
	copy(all, e.all)
	return Expression{all: append(all, c)}, nil
}

// Conditions lists the required matches in insertion order.
func (e Expression) Conditions() []Condition { return e.all }

// IsEmpty reports whether e places no restriction.
func (e Expression) IsEmpty() bool { return len(e.all) == 0 }
