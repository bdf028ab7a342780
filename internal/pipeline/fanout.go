package pipeline

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// fanOut runs task for indices 0..n-1 with at most limit running at once and
// returns results and errors by index. A failing task does not stop its
// siblings. Once ctx is done no further task starts, and the partial results
// are dropped in favor of ctx.Err().
func fanOut[T any](ctx context.Context, limit, n int, task func(ctx context.Context, i int) (T, error)) ([]T, []error, error) {
	results := make([]T, n)
	errs := make([]error, n)

	p := pool.New().WithMaxGoroutines(max(1, limit)).WithContext(ctx)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		p.Go(func(ctx context.Context) error {
			if ctx.Err() != nil {
				return nil
			}
			results[i], errs[i] = task(ctx, i)
			return nil
		})
	}
	_ = p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return results, errs, nil
}
