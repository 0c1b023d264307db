package testutil

import (
	"sync"
	"sync/atomic"

	"wealth/internal/payloadstore"
	dErrors "wealth/pkg/domain-errors"
)

// ConcurrentResult counts outcomes of a concurrent run.
type ConcurrentResult struct {
	Successes int32
	NotFounds int32
	Errors    int32
	// Failures holds every error that was neither nil nor a not-found.
	Failures []error
}

// Total returns the number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.NotFounds + r.Errors
}

// RunConcurrent releases n goroutines at once and buckets their results.
// Missing payloads and domain not-found errors are counted as NotFounds.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		start     = make(chan struct{})
		result    ConcurrentResult
		successes atomic.Int32
		notFounds atomic.Int32
	)

	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			<-start
			err := fn(i)
			switch {
			case err == nil:
				successes.Add(1)
			case payloadstore.IsNotFound(err), dErrors.HasCode(err, dErrors.CodeNotFound):
				notFounds.Add(1)
			default:
				mu.Lock()
				result.Failures = append(result.Failures, err)
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	result.Successes = successes.Load()
	result.NotFounds = notFounds.Load()
	result.Errors = int32(len(result.Failures))
	return &result
}
