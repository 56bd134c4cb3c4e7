// Package dto holds the request and response shapes of the HTTP API.
package dto

import (
	"errors"
	"strings"
)

// TraversalOptions are the shared knobs accepted by the graph endpoints.
type TraversalOptions struct {
	MaxDepth      int      `json:"max_depth"`
	RelationTypes []string `json:"relation_types,omitempty"`
	MinConfidence float64  `json:"min_confidence,omitempty"`
	MaxVisited    int      `json:"max_visited,omitempty"`
}

// NeighborsRequest is the body of POST /api/v1/graph/neighbors.
type NeighborsRequest struct {
	EntityID string `json:"entity_id" binding:"required"`
	TraversalOptions
}

// Validate performs validation on NeighborsRequest.
func (r *NeighborsRequest) Validate() error {
	if strings.TrimSpace(r.EntityID) == "" {
		return errors.New("entity_id cannot be empty")
	}
	return nil
}

// PathRequest is the body of POST /api/v1/graph/path.
type PathRequest struct {
	StartID string `json:"start_id" binding:"required"`
	EndID   string `json:"end_id" binding:"required"`
	TraversalOptions
}

// Validate performs validation on PathRequest.
func (r *PathRequest) Validate() error {
	if strings.TrimSpace(r.StartID) == "" {
		return errors.New("start_id cannot be empty")
	}
	if strings.TrimSpace(r.EndID) == "" {
		return errors.New("end_id cannot be empty")
	}
	return nil
}

// SubgraphRequest is the body of POST /api/v1/graph/subgraph.
type SubgraphRequest struct {
	EntityIDs []string `json:"entity_ids" binding:"required"`
	TraversalOptions
}

// Validate performs validation on SubgraphRequest.
func (r *SubgraphRequest) Validate() error {
	if len(r.EntityIDs) == 0 {
		return errors.New("entity_ids cannot be empty")
	}
	for _, id := range r.EntityIDs {
		if strings.TrimSpace(id) == "" {
			return errors.New("entity_ids cannot contain empty ids")
		}
	}
	return nil
}

// ContextRequest is the body of POST /api/v1/context.
type ContextRequest struct {
	EntityIDs        []string `json:"entity_ids" binding:"required"`
	IncludeNeighbors bool     `json:"include_neighbors"`
}

// Validate performs validation on ContextRequest.
func (r *ContextRequest) Validate() error {
	if len(r.EntityIDs) == 0 {
		return errors.New("entity_ids cannot be empty")
	}
	return nil
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
