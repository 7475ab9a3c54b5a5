package feed

import (
	"context"
	"sync"
)

// runOrdered applies fn to every input using up to workers goroutines and
// returns the results in input order. Inputs not yet started when ctx is
// cancelled are still handed to fn, which is expected to observe ctx itself.
func runOrdered[T, R any](ctx context.Context, workers int, inputs []T, fn func(context.Context, T) R) []R {
	results := make([]R, len(inputs))
	if len(inputs) == 0 {
		return results
	}
	if workers <= 1 {
		for i, in := range inputs {
			results[i] = fn(ctx, in)
		}
		return results
	}

	jobs := make(chan int, len(inputs))
	var wg sync.WaitGroup
	for i := 0; i < workers && i < len(inputs); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = fn(ctx, inputs[idx])
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
