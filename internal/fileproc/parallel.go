// Package fileproc runs a per-file function over a file list on a bounded
// worker pool.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// Failure is a file the function could not process.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// ErrorFunc receives per-file failures, in path order, after the pool drains.
type ErrorFunc func(path string, err error)

// defaultWorkers is the pool size when none is given: twice the core
// count, since reads are I/O bound.
func defaultWorkers() int {
	return runtime.NumCPU() * 2
}

// Map calls fn for every file and returns the successful results in the
// order of files. A file whose fn fails is skipped and passed to onError;
// the other files still run. Once ctx is done no new file starts and Map
// returns ctx.Err().
func Map[T any](ctx context.Context, files []string, workers int, fn func(path string) (T, error), onError ErrorFunc) ([]T, error) {
	if len(files) == 0 {
		return nil, ctx.Err()
	}
	if workers <= 0 {
		workers = defaultWorkers()
	}

	type slot struct {
		value T
		ok    bool
	}
	slots := make([]slot, len(files))

	var (
		mu       sync.Mutex
		failures []Failure
	)

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, path := range files {
		i, path := i, path
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := fn(path)
			if err != nil {
				mu.Lock()
				failures = append(failures, Failure{Path: path, Err: err})
				mu.Unlock()
				return nil
			}
			slots[i] = slot{value: v, ok: true}
			return nil
		})
	}
	// Tasks only fail with the context error.
	if err := p.Wait(); err != nil {
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if onError != nil {
		sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
		for _, f := range failures {
			onError(f.Path, f.Err)
		}
	}

	results := make([]T, 0, len(files))
	for _, s := range slots {
		if s.ok {
			results = append(results, s.value)
		}
	}
	return results, nil
}
