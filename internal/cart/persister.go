package cart

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/storage"
)

const defaultWriteBuffer = 64

type writeRequest struct {
	payload string
	flushed chan struct{}
}

// persister writes cart snapshots from a single goroutine so they land in the
// store in the order they were queued. Once limit snapshots are pending, a
// newer snapshot replaces the pending tail instead of blocking the engine.
type persister struct {
	ctx     context.Context
	store   storage.Store
	logg    *logger.Logger
	metrics *metrics.PersistenceMetrics
	limit   int

	mu      sync.Mutex
	pending []writeRequest
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newPersister(ctx context.Context, store storage.Store, logg *logger.Logger, m *metrics.PersistenceMetrics, buffer int) *persister {
	if buffer <= 0 {
		buffer = defaultWriteBuffer
	}
	p := &persister{
		ctx:     context.WithoutCancel(ctx),
		store:   store,
		logg:    logg,
		metrics: m,
		limit:   buffer,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) run() {
	defer close(p.done)
	for {
		p.mu.Lock()
		batch, closed := p.pending, p.closed
		p.pending = nil
		p.mu.Unlock()

		for _, req := range batch {
			if req.flushed != nil {
				close(req.flushed)
				continue
			}
			p.write(req.payload)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-p.wake
	}
}

func (p *persister) write(payload string) {
	start := time.Now()
	err := p.store.Set(p.ctx, storage.KeyCartItems, payload)
	p.metrics.ObserveWrite(storage.KeyCartItems, time.Since(start), err)
	if err != nil {
		ctx := p.logg.WithStoreKey(p.ctx, storage.KeyCartItems)
		p.logg.Error(ctx, "failed to persist cart", err)
	}
}

func (p *persister) push(req writeRequest) {
	p.mu.Lock()
	last := len(p.pending) - 1
	if req.flushed == nil && last >= 0 && len(p.pending) >= p.limit && p.pending[last].flushed == nil {
		p.pending[last] = req
	} else {
		p.pending = append(p.pending, req)
	}
	p.mu.Unlock()
	p.signal()
}

func (p *persister) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// enqueue must be called with the engine lock held. It never blocks.
func (p *persister) enqueue(payload string) {
	p.push(writeRequest{payload: payload})
}

// flushMarker must be called with the engine lock held. The returned channel
// closes once every write queued before it has been attempted.
func (p *persister) flushMarker() chan struct{} {
	flushed := make(chan struct{})
	p.push(writeRequest{flushed: flushed})
	return flushed
}

// stop must be called once, with the engine lock held.
func (p *persister) stop() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.signal()
}

func (p *persister) wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
