// Package types defines the core data model shared by every verkko
// component: entities, relationships, communities, community memberships,
// and cached graph statistics, together with the validation and error
// taxonomy used across the engine.
package types
