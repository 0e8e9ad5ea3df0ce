package pool

import (
	"io"
	"runtime"
	"sync"
)

// Pool represents a pool of workers, used for parallelizing expensive searches
// (prime sampling) and batches of independent work (oracle decryptions).
//
// Functions needing a *Pool will work with a nil receiver, doing the equivalent
// work on the current goroutine instead.
//
// By creating a pool, you avoid the overhead of spinning up goroutines for
// each new operation.
type Pool struct {
	// tasks is shared by all workers, which effectively makes a work stealing pool.
	tasks       chan func()
	workerCount int
	once        sync.Once
}

// NewPool creates a new pool, with a certain number of workers.
//
// If count <= 0, this will use the number of available CPUs instead.
func NewPool(count int) *Pool {
	if count <= 0 {
		count = runtime.NumCPU()
	}
	p := &Pool{
		tasks:       make(chan func()),
		workerCount: count,
	}
	for i := 0; i < count; i++ {
		go func() {
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Workers returns the number of goroutines backing the pool, or 1 for a nil pool.
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workerCount
}

// TearDown cleanly tears down a pool. It is safe to call more than once.
func (p *Pool) TearDown() {
	if p == nil {
		return
	}
	p.once.Do(func() { close(p.tasks) })
}

// Search queries f until count successes are found.
//
// f is supposed to try a single candidate, returning false if that candidate isn't
// successful. The result contains the first count successes, in no particular order.
func Search[T any](p *Pool, count int, f func() (T, bool)) []T {
	results := make([]T, 0, count)
	if p == nil {
		for len(results) < count {
			if v, ok := f(); ok {
				results = append(results, v)
			}
		}
		return results
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	full := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) >= count
	}
	wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.tasks <- func() {
			defer wg.Done()
			for !full() {
				v, ok := f()
				if !ok {
					continue
				}
				mu.Lock()
				if len(results) < count {
					results = append(results, v)
				}
				mu.Unlock()
			}
		}
	}
	wg.Wait()
	return results
}

// Parallelize calls f count times, passing in indices from 0..count-1.
//
// The result will be a slice containing [f(0), f(1), ..., f(count - 1)].
func Parallelize[T any](p *Pool, count int, f func(int) T) []T {
	results := make([]T, count)
	if p == nil {
		for i := range results {
			results[i] = f(i)
		}
		return results
	}

	var wg sync.WaitGroup
	wg.Add(count)
	for i := 0; i < count; i++ {
		i := i
		p.tasks <- func() {
			defer wg.Done()
			results[i] = f(i)
		}
	}
	wg.Wait()
	return results
}

// LockedReader wraps an io.Reader to be safe for concurrent reads.
//
// Naturally, when reading concurrently, which caller ends up getting which bytes
// is raced, but no two callers ever observe the same bytes.
type LockedReader struct {
	reader io.Reader
	m      sync.Mutex
}

// NewLockedReader creates a LockedReader by wrapping an underlying value.
func NewLockedReader(r io.Reader) *LockedReader {
	return &LockedReader{reader: r}
}

// Read implements io.Reader.
func (r *LockedReader) Read(p []byte) (int, error) {
	r.m.Lock()
	defer r.m.Unlock()
	return r.reader.Read(p)
}
