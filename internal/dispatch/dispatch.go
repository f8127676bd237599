// Package dispatch runs the missing-translation workload against a remote
// translator under a fixed concurrency ceiling.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/transitops/alerts-translator/internal/translation"
)

// Translator is the remote machine-translation capability. Implementations
// handle their own authentication; Translate blocks for one network round
// trip per call.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// DefaultConcurrency is the in-flight request ceiling used when the run
// configuration does not set one.
const DefaultConcurrency = 20

// Run translates every pair concurrently, never holding more than limit
// requests in flight at once. Pairs beyond the ceiling queue until a slot
// frees. A failed pair does not cancel its in-flight siblings, which are
// allowed to drain, but the first error is returned and no result map is
// produced: the caller must not merge a partial wave.
func Run(ctx context.Context, tr Translator, pairs []translation.Pair, limit int) (translation.Map, error) {
	results := make(translation.Map)
	if len(pairs) == 0 {
		return results, nil
	}
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	var errOnce sync.Once

	for _, pair := range pairs {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(p translation.Pair) {
			defer func() {
				<-sem
				wg.Done()
			}()

			translated, err := tr.Translate(ctx, p.Text, p.Language)
			if err != nil {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("translate to %s failed: %w", p.Language, err)
				})
				return
			}

			// Pairs within one run are disjoint, so completions only
			// contend on the map itself.
			mu.Lock()
			results.Add(p.Text, p.Language, translated)
			mu.Unlock()
		}(pair)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
