package limiter

import (
	"context"
	"strings"
	"sync"
)

// Limiter caps concurrent in-flight requests per provider:model so page-level
// fan-out cannot blow through provider rate limits. Safe for concurrent use.
type Limiter struct {
	maxInflight int
	mu          sync.Mutex
	sem         map[string]chan struct{}
}

func New(maxInflight int) *Limiter {
	if maxInflight <= 0 {
		maxInflight = 2
	}
	return &Limiter{maxInflight: maxInflight, sem: map[string]chan struct{}{}}
}

func (l *Limiter) slot(provider, model string) chan struct{} {
	key := strings.ToLower(provider) + ":" + strings.ToLower(model)
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.sem[key]
	if !ok {
		ch = make(chan struct{}, l.maxInflight)
		l.sem[key] = ch
	}
	return ch
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// function must be called exactly once.
func (l *Limiter) Acquire(ctx context.Context, provider, model string) (func(), error) {
	ch := l.slot(provider, model)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire reserves a slot without blocking.
func (l *Limiter) TryAcquire(provider, model string) (func(), bool) {
	ch := l.slot(provider, model)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, true
	default:
		return nil, false
	}
}
