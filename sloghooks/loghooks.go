// Package sloghooks reports cache events through log/slog. Per-read events
// log at Debug; the rest at Info or Warn.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/rowcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	MissEvery     uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	missCtr     atomic.Uint64
}

var _ rowcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(connection, table string, n int) {
	if h.l == nil {
		return
	}
	h.l.Debug("rowcache.hit", "connection", connection, "table", table, "n", n)
}

func (h *Hooks) NegativeHit(connection, table string) {
	if h.l == nil {
		return
	}
	h.l.Debug("rowcache.negative_hit", "connection", connection, "table", table)
}

func (h *Hooks) Miss(connection, table string, n int) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("rowcache.miss", "connection", connection, "table", table, "n", n)
}

func (h *Hooks) HandlerMissing(connection string) {
	if h.l == nil {
		return
	}
	h.l.Warn("rowcache.handler_missing", "connection", connection)
}

func (h *Hooks) IncrementRejected(connection, table string) {
	if h.l == nil {
		return
	}
	h.l.Info("rowcache.increment_rejected", "connection", connection, "table", table)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Warn("rowcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}
