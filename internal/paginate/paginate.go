// ABOUTME: Generic accumulator that walks cursor-paginated list endpoints.
// ABOUTME: Guards against runaway pagination with a page cap and a repeated-cursor check.

package paginate

import (
	"context"
	"fmt"

	"github.com/2389/hcp-gateway/internal/apierr"
)

// DefaultMaxPages bounds a single accumulation.
const DefaultMaxPages = 1000

// Page is one answer from a list endpoint.
type Page[T any] struct {
	Items []T
	Next  string
}

// FetchFunc fetches the page at cursor. The first call receives "".
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Options tunes an accumulation.
type Options struct {
	MaxPages int
	// Limit stops after at least Limit items have been collected and trims
	// the result to Limit. Zero means no limit.
	Limit int
}

// Accumulate concatenates every page in the order the API returned them.
func Accumulate[T any](ctx context.Context, fetch FetchFunc[T], opts Options) ([]T, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var (
		items  []T
		cursor string
	)
	for page := 1; ; page++ {
		if page > maxPages {
			return nil, apierr.PaginationLoop(
				fmt.Sprintf("pagination exceeded %d pages", maxPages),
				map[string]any{"pages": maxPages},
			)
		}
		if err := ctx.Err(); err != nil {
			return nil, apierr.Transient("pagination cancelled", 0, err)
		}

		result, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)

		if opts.Limit > 0 && len(items) >= opts.Limit {
			return items[:opts.Limit], nil
		}
		if result.Next == "" {
			return items, nil
		}
		if result.Next == cursor {
			return nil, apierr.PaginationLoop(
				"pagination cursor repeated",
				map[string]any{"page": page},
			)
		}
		cursor = result.Next
	}
}
