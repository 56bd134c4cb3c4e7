package types

import (
	"encoding/json"
	"time"
)

// BasicStatsName is the statistic name under which the aggregate metrics row
// is cached, keyed together with an optional document scope.
const BasicStatsName = "basic_stats"

// GraphStatistic is a cached aggregate row. It is written only by the
// statistics cache via an atomic upsert keyed on (Scope, Name) and is always
// re-derivable from entity and relationship data.
type GraphStatistic struct {
	Scope      string          `json:"document_scope,omitempty" mapstructure:"document_scope"`
	Name       string          `json:"statistic_name" mapstructure:"statistic_name"`
	Value      json.RawMessage `json:"value" mapstructure:"value"`
	ComputedAt time.Time       `json:"computed_at" mapstructure:"computed_at"`
}

// BasicStats is the structured value stored under BasicStatsName.
type BasicStats struct {
	EntityCount       int     `json:"entity_count"`
	RelationshipCount int     `json:"relationship_count"`
	AvgDegree         float64 `json:"avg_degree"`
	MaxDegree         int     `json:"max_degree"`
	IsolatedEntities  int     `json:"isolated_entities"`
	Density           float64 `json:"density"`
}

// ExtendedStats holds the live (uncached) aggregate view: per-type
// breakdowns and the most connected entities.
type ExtendedStats struct {
	Basic            BasicStats        `json:"basic"`
	EntityTypeCounts map[string]int    `json:"entity_types"`
	RelationTypes    map[string]int    `json:"relation_types"`
	DocumentCount    int               `json:"document_count"`
	MostConnected    []ConnectedEntity `json:"most_connected_entities"`
}

// ConnectedEntity pairs an entity with its total relationship degree.
type ConnectedEntity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`
	Degree     int    `json:"connection_count"`
}
