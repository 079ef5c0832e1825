package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Pauses coordinates the batch drivers' pause-and-confirm flow. A
// driver registers a pause and waits; an external resume call (or the
// auto-resume timeout) releases it. Resume channels are held
// in-process — they cannot cross instances — but pause-key existence
// goes through the Store so a status endpoint on any instance can see
// outstanding keys.
type Pauses struct {
	store   Store
	timeout time.Duration

	mu      sync.Mutex
	waiters map[string]chan struct{}
}

func NewPauses(store Store, timeout time.Duration) *Pauses {
	return &Pauses{
		store:   store,
		timeout: timeout,
		waiters: make(map[string]chan struct{}),
	}
}

// Register creates a pause key and its resume channel. The caller
// should pass the key to the client and then call Wait.
func (p *Pauses) Register(ctx context.Context) (string, error) {
	key := uuid.NewString()
	ch := make(chan struct{})

	p.mu.Lock()
	p.waiters[key] = ch
	p.mu.Unlock()

	if err := p.store.Set(ctx, "pause:"+key, []byte("1"), p.timeout); err != nil {
		p.mu.Lock()
		delete(p.waiters, key)
		p.mu.Unlock()
		return "", err
	}
	return key, nil
}

// Wait blocks until the pause is resumed, the auto-resume timeout
// elapses, or the context is canceled. It reports true when resumption
// came from an explicit Resume call.
func (p *Pauses) Wait(ctx context.Context, key string) (resumedExplicitly bool) {
	p.mu.Lock()
	ch, ok := p.waiters[key]
	p.mu.Unlock()
	if !ok {
		return false
	}

	defer func() {
		p.mu.Lock()
		delete(p.waiters, key)
		p.mu.Unlock()
		_ = p.store.Delete(context.Background(), "pause:"+key)
	}()

	select {
	case <-ch:
		return true
	case <-time.After(p.timeout):
		// Safety valve: the initiating client never confirmed.
		return false
	case <-ctx.Done():
		return false
	}
}

// Resume releases the waiter for key. Returns false when the key is
// unknown or already resolved.
func (p *Pauses) Resume(ctx context.Context, key string) bool {
	p.mu.Lock()
	ch, ok := p.waiters[key]
	if ok {
		delete(p.waiters, key)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	close(ch)
	_ = p.store.Delete(ctx, "pause:"+key)
	return true
}
