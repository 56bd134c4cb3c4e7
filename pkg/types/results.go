package types

// Direction selects which relationship endpoints count as adjacency when
// reading edges for an entity.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// NeighborResult is one discovered neighbor. A node reached at multiple
// depths via different paths is reported once, at the minimal depth.
type NeighborResult struct {
	EntityID     string  `json:"entity_id"`
	Name         string  `json:"name"`
	EntityType   string  `json:"entity_type"`
	Depth        int     `json:"depth"`
	RelationType string  `json:"relation_type"`
	Confidence   float64 `json:"confidence"`
}

// PathResult is the outcome of a shortest-path search. Found is false when
// no path exists within the depth bound; that is a valid result, not an
// error.
type PathResult struct {
	Found        bool     `json:"found"`
	Length       int      `json:"length"`
	EntityPath   []string `json:"entity_path"`
	RelationPath []string `json:"relation_path"`
}

// MatchResult is one fuzzy-lookup hit.
type MatchResult struct {
	EntityID          string  `json:"entity_id"`
	Name              string  `json:"name"`
	EntityType        string  `json:"entity_type"`
	Similarity        float64 `json:"similarity"`
	RelationshipCount int     `json:"relationship_count"`
}

// CommunityContext is the context bundle assembled for one community:
// its identity, full member list, and every relationship whose both
// endpoints are members.
type CommunityContext struct {
	CommunityID   string          `json:"community_id"`
	Name          string          `json:"name,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	MemberCount   int             `json:"member_count"`
	Members       []*Entity       `json:"members"`
	Relationships []*Relationship `json:"relationships"`
}

// DocumentGraph is the per-document slice of the graph: the document's
// entities plus every relationship touching one of them.
type DocumentGraph struct {
	DocumentID    string          `json:"document_id"`
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships"`
}
