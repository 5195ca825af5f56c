package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/lexidraw/collab-relay/internal/debounce"
	"github.com/lexidraw/collab-relay/internal/metrics"
)

// Coalescer defers writes until an entity has been quiet for the configured
// window, keeping only the latest snapshot per entity. Entities debounce
// independently: a burst of edits on one drawing never delays or discards a
// pending write for another.
//
// Writes run on the debounce timer goroutine; failures are logged and the
// snapshot is dropped. The next successful edit's write catches up.
type Coalescer struct {
	saver   Saver
	deb     *debounce.Debouncer
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.Mutex
	latest map[string]Snapshot
}

type CoalescerConfig struct {
	Saver  Saver
	Clock  clock.Clock
	Window time.Duration

	// Timeout bounds one Save call. Zero means no deadline.
	Timeout time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func NewCoalescer(cfg CoalescerConfig) *Coalescer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coalescer{
		saver:   cfg.Saver,
		deb:     debounce.New(cfg.Clock, cfg.Window),
		log:     logger,
		metrics: cfg.Metrics,
		timeout: cfg.Timeout,
		latest:  make(map[string]Snapshot),
	}
}

// Enqueue records snap as the entity's latest state and (re)arms its write
// timer. It never blocks on storage.
func (c *Coalescer) Enqueue(snap Snapshot) {
	c.mu.Lock()
	c.latest[snap.EntityID] = snap
	c.mu.Unlock()

	c.metrics.Inc(metrics.EventSaveScheduled)
	c.deb.Call(snap.EntityID, func() { c.flush(snap.EntityID) })
}

func (c *Coalescer) flush(entityID string) {
	c.mu.Lock()
	snap, ok := c.latest[entityID]
	delete(c.latest, entityID)
	c.mu.Unlock()
	if !ok {
		return
	}

	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.saver.Save(ctx, snap); err != nil {
		c.log.Error("snapshot save failed",
			"entity_id", snap.EntityID,
			"entity_type", snap.EntityType,
			"err", err,
		)
		c.metrics.Inc(metrics.EventSaveFailed)
		return
	}
	c.metrics.Inc(metrics.EventSaveCompleted)
}

// Close discards all pending writes.
func (c *Coalescer) Close() {
	c.deb.Stop()
}
