// Package store provides row-oriented storage for entities, relationships,
// communities, and cached graph statistics.
//
// Stores are leaf collaborators: they expose CRUD, lookup-by-id, and scoped
// list/count operations, and they enforce the write-path invariants
// (no self-loops, unique relationship triples). All traversal logic lives
// above them.
//
// Four backends are available through NewGraphStore:
//
//   - memory: in-process maps guarded by a RWMutex, the default for tests
//     and embedded use
//   - badger: embedded persistent storage on BadgerDB
//   - postgres: external PostgreSQL, schema-compatible with the original
//     wiki graph tables
//   - neo4j: property-graph backend mapping the row model onto nodes
//
// A remote backend can additionally be wrapped with NewBreakerStore to fail
// fast when the database is unhealthy.
package store
