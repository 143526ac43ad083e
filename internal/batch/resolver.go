// Package batch implements a bounded-concurrency fan-out search with
// early termination.
//
// Buckets are processed in consecutive groups of at most the given
// limit. Groups run strictly sequentially; the lookups inside a group
// run concurrently and are all awaited before their results are
// scanned. The outstanding-target set is therefore only ever touched
// between groups, which is what makes it safe without a lock. Any
// change that overlaps groups must also synchronize that set.
package batch

import (
	"context"
	"fmt"
	"sync"
)

// Pair is one candidate produced by a bucket lookup.
type Pair[P any] struct {
	ID      string
	Payload P
}

// Lookup queries a single bucket for candidate pairs.
type Lookup[B, P any] func(ctx context.Context, bucket B) ([]Pair[P], error)

type options struct {
	isolateFailures bool
}

// Option configures Resolve.
type Option func(*options)

// WithFailureIsolation makes Resolve skip buckets whose lookup failed
// instead of aborting the whole call. Targets that only lived in a
// failed bucket simply stay unresolved.
func WithFailureIsolation() Option {
	return func(o *options) { o.isolateFailures = true }
}

// Resolve finds which bucket each target id belongs to.
//
// It issues lookups in groups of at most limit, scans each group's
// results in bucket order, and records the first pair matching a still
// outstanding target. No further group is issued once every target has
// been matched. Exhausting all buckets with targets left over is not an
// error; the returned map is simply missing those ids.
//
// By default any lookup error aborts the call and the whole group's
// results are discarded; see WithFailureIsolation.
func Resolve[B, P any](
	ctx context.Context,
	targets []string,
	buckets []B,
	limit int,
	lookup Lookup[B, P],
	opts ...Option,
) (map[string]P, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if limit < 1 {
		limit = 1
	}

	outstanding := make(map[string]struct{}, len(targets))
	for _, id := range targets {
		outstanding[id] = struct{}{}
	}
	found := make(map[string]P, len(targets))

	for i := 0; i < len(buckets) && len(outstanding) > 0; i += limit {
		group := buckets[i:min(i+limit, len(buckets))]

		results := make([][]Pair[P], len(group))
		lookupErrs := make([]error, len(group))
		var wg sync.WaitGroup
		for j := range group {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[j], lookupErrs[j] = lookup(ctx, group[j])
			}()
		}
		wg.Wait()

		// A group either fails as a whole or contributes as a whole:
		// check errors before recording anything, so a failed group
		// never leaks sibling results.
		if !o.isolateFailures {
			for j := range group {
				if lookupErrs[j] != nil {
					return nil, fmt.Errorf("bucket lookup: %w", lookupErrs[j])
				}
			}
		}

		// Scan in bucket order so the first matching bucket wins.
		for j := range group {
			if lookupErrs[j] != nil {
				continue
			}
			for _, p := range results[j] {
				if _, want := outstanding[p.ID]; want {
					found[p.ID] = p.Payload
					delete(outstanding, p.ID)
				}
			}
		}
	}
	return found, nil
}
