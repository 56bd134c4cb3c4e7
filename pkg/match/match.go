// Package match implements fuzzy entity lookup by display name. Scoring
// follows trigram similarity (padded word trigrams, intersection over
// union), with a case-insensitive substring fallback for short or partial
// queries where trigram scores underperform.
package match

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/types"
)

// DefaultThreshold is the similarity floor used when the caller has no
// opinion.
const DefaultThreshold = 0.3

// scanPageSize is how many entities one candidate-scan page loads.
const scanPageSize = 1000

// Matcher scores entities against a query string and ranks qualifying hits.
type Matcher struct {
	entities store.EntityStore
	rels     store.RelationshipStore
}

// NewMatcher creates a Matcher over the given stores.
func NewMatcher(entities store.EntityStore, rels store.RelationshipStore) *Matcher {
	return &Matcher{entities: entities, rels: rels}
}

// FindByName returns entities whose name scores at least threshold against
// query, or whose display or normalized name contains query as a
// case-insensitive substring. Results are ordered by descending similarity,
// then descending relationship degree, truncated to limit.
func (m *Matcher) FindByName(ctx context.Context, query string, threshold float64, limit int) ([]types.MatchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrEmptyName)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrBadThreshold)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgument, types.ErrBadLimit)
	}

	degrees, err := m.rels.DegreeCounts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load degrees: %w", err)
	}

	queryGrams := trigrams(query)
	needle := strings.ToLower(strings.TrimSpace(query))

	var out []types.MatchResult
	for offset := 0; ; offset += scanPageSize {
		page, err := m.entities.ListEntities(ctx, "", scanPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entities: %w", err)
		}
		for _, entity := range page {
			similarity := jaccard(queryGrams, trigrams(entity.Name))
			if similarity < threshold && !substringMatch(entity, needle) {
				continue
			}
			out = append(out, types.MatchResult{
				EntityID:          entity.ID,
				Name:              entity.Name,
				EntityType:        entity.EntityType,
				Similarity:        similarity,
				RelationshipCount: degrees[entity.ID],
			})
		}
		if len(page) < scanPageSize {
			break
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		if out[i].RelationshipCount != out[j].RelationshipCount {
			return out[i].RelationshipCount > out[j].RelationshipCount
		}
		return out[i].EntityID < out[j].EntityID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func substringMatch(entity *types.Entity, needle string) bool {
	return strings.Contains(strings.ToLower(entity.Name), needle) ||
		strings.Contains(entity.NormalizedName, needle)
}

// Similarity scores two strings by trigram overlap in [0,1].
func Similarity(a, b string) float64 {
	return jaccard(trigrams(a), trigrams(b))
}

// trigrams extracts the padded word trigrams of s: each word is lowercased
// and padded with two leading and one trailing space before slicing into
// three-rune windows.
func trigrams(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(s)) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			out[string(padded[i:i+3])] = struct{}{}
		}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for gram := range a {
		if _, ok := b[gram]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
