package search

import "context"

// Searcher defines the query shapes offered by the search utility.
// Consumers should depend on this interface rather than *Gateway so they
// can be tested without the external process.
type Searcher interface {
	FindFilesByGlob(ctx context.Context, glob string) []string
	FindFilesByContent(ctx context.Context, pattern string) []string
	FindLinesByContent(ctx context.Context, pattern string) map[string][]LineMatch
}

// Verify *Gateway satisfies Searcher at compile time.
var _ Searcher = (*Gateway)(nil)
