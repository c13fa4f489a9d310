package concurrency

import (
	"context"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Job is one unit of work handed to a worker.
type Job[I any, O any] struct {
	Name   string
	Input  I
	Output O
	Err    error
}

// Execute runs f over jobs on at most n workers and returns the errors of
// the failed jobs, aggregated. Jobs not yet started when ctx is cancelled
// fail with the context's error.
func Execute[I any, O any](ctx context.Context, f func(context.Context, *Job[I, O]) (O, error), jobs []*Job[I, O], n int) error {
	if n < 1 {
		n = 1
	}
	if n > len(jobs) {
		n = len(jobs)
	}

	jch := make(chan *Job[I, O], len(jobs))
	wg := new(sync.WaitGroup)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go worker(ctx, f, jch, wg)
	}

	for _, j := range jobs {
		jch <- j
	}

	close(jch)
	wg.Wait()

	var errs *multierror.Error
	for _, j := range jobs {
		if j.Err != nil {
			errs = multierror.Append(errs, errors.Wrap(j.Err, j.Name))
		}
	}

	return errs.ErrorOrNil()
}

func worker[I any, O any](ctx context.Context, f func(context.Context, *Job[I, O]) (O, error), jobs chan *Job[I, O], wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		if err := ctx.Err(); err != nil {
			j.Err = err
			continue
		}
		j.Output, j.Err = f(ctx, j)
	}
}
