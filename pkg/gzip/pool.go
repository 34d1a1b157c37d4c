package gzip

import "sync"

// pool runs member characterizations on at most size goroutines and keeps
// the first error.
type pool struct {
	wg  sync.WaitGroup
	sem chan struct{}
	mu  sync.Mutex
	err error
}

// newPool returns nil when size does not allow any parallelism.
func newPool(size int) *pool {
	if size < 2 {
		return nil
	}
	return &pool{sem: make(chan struct{}, size)}
}

func (p *pool) Go(fn func() error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}        // Acquire
		defer func() { <-p.sem }() // Release

		if err := fn(); err != nil {
			p.mu.Lock()
			if p.err == nil {
				p.err = err
			}
			p.mu.Unlock()
		}
	}()
}

// Wait blocks until every submitted task has finished. It is safe on a nil
// pool.
func (p *pool) Wait() error {
	if p == nil {
		return nil
	}
	p.wg.Wait()
	return p.err
}
