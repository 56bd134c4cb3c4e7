// Package verkko is a graph traversal and analytics engine over an
// entity/relationship/community model populated by an external extraction
// pipeline. It provides neighbor expansion, shortest-path search, subgraph
// extraction, fuzzy entity lookup, cached statistics and community-context
// assembly on top of pluggable storage backends (in-memory, Badger,
// PostgreSQL, Neo4j).
//
// The engine is read-only apart from the statistics cache; all query
// operations are safe for concurrent use.
package verkko
