// Package memory persists agent memories with workspace isolation, semantic
// search, typed relationships, and append-only version history.
//
// Invariants:
// - Writes for one entry batch into a single pipeline round trip.
// - Expiry is lazy with an exclusive boundary; expired entries are invisible
//   everywhere before the sweeper reclaims them.
// - Version snapshots capture the pre-update state and are never rewritten.
// - Dangling relationship endpoints are filtered at read time, not errored.
//
// Usage:
//
//	repo, _ := memory.NewRepository(memory.Config{Store: store, Resolver: resolver, WorkspacePath: "/workspace"})
//	entry, _ := repo.Create(ctx, memory.CreateInput{Content: "prefer tabs", ContextType: memory.ContextPreference, Importance: 5})
//	results, _ := repo.Search(ctx, memory.SearchQuery{Text: "indentation"})
//	_, _ = entry, results
package memory
