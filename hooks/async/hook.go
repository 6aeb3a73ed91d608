// Package asynchook moves hook delivery off the read path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	m, _ := rowcache.New(rowcache.Options{
//	    Connections: conns,
//	    Registry:    registry,
//	    Store:       store,
//	    Hooks:       hooks, // or `raw` if you don't want async
//	})
//
// Events are dropped when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/rowcache"
)

type Hooks struct {
	inner   rowcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ rowcache.Hooks = (*Hooks)(nil)

func New(inner rowcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events sent after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded on a full queue.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	defer func() {
		// send on closed queue after Close
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(c, t string, n int)  { h.try(func() { h.inner.Hit(c, t, n) }) }
func (h *Hooks) NegativeHit(c, t string) { h.try(func() { h.inner.NegativeHit(c, t) }) }
func (h *Hooks) Miss(c, t string, n int) { h.try(func() { h.inner.Miss(c, t, n) }) }
func (h *Hooks) HandlerMissing(c string) { h.try(func() { h.inner.HandlerMissing(c) }) }
func (h *Hooks) IncrementRejected(c, t string) {
	h.try(func() { h.inner.IncrementRejected(c, t) })
}
func (h *Hooks) SelfHeal(k, r string) { h.try(func() { h.inner.SelfHeal(k, r) }) }
