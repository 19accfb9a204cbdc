package tracker

import (
	"context"
	"sync"
	"time"

	"philosofium/backend/utils"
)

// Config holds the tracker timings.
type Config struct {
	IdleTimeout   time.Duration
	FlushInterval time.Duration
	TickInterval  time.Duration
	SyncTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		IdleTimeout:   60 * time.Second,
		FlushInterval: 10 * time.Second,
		TickInterval:  time.Second,
		SyncTimeout:   5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = d.FlushInterval
	}
	if c.TickInterval < time.Second {
		c.TickInterval = d.TickInterval
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = d.SyncTimeout
	}
	return c
}

type Option func(*Tracker)

func WithClock(clock Clock) Option {
	return func(t *Tracker) { t.clock = clock }
}

func WithLogger(log *utils.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

// Tracker counts active seconds for one resource at a time and ships them to the
// ingestion endpoints. Delivery is best effort: a failed sync loses its batch.
type Tracker struct {
	mu     sync.Mutex
	cfg    Config
	clock  Clock
	sender Sender
	log    *utils.Logger

	// dispatch runs a sync off the caller's path
	dispatch func(func())

	resourceID   string
	resourceType string
	unsaved      int
	tracking     bool
	closed       bool

	// generations invalidate callbacks of timers that were stopped too late
	tickGen uint64
	idleGen uint64

	tick  Timer
	idle  Timer
	flush Timer
}

// New creates a tracker and arms its periodic flush.
func New(cfg Config, sender Sender, opts ...Option) *Tracker {
	t := &Tracker{
		cfg:      cfg.withDefaults(),
		clock:    realClock{},
		sender:   sender,
		log:      utils.NopLogger(),
		dispatch: func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(t)
	}

	t.mu.Lock()
	t.armFlushLocked()
	t.mu.Unlock()
	return t
}

// SetResource switches the tracked resource. Seconds counted for the previous
// resource are sent first; they never carry over.
func (t *Tracker) SetResource(id, resourceType string) {
	t.mu.Lock()
	if t.closed || (id == t.resourceID && resourceType == t.resourceType) {
		t.mu.Unlock()
		return
	}
	pending := t.takeLocked()
	t.resourceID = id
	t.resourceType = resourceType
	t.unsaved = 0
	t.mu.Unlock()

	t.send(pending)
}

// StartTracking starts the tick and the idle timer. Calling it while already
// tracking is a no-op; use ReportActivity to postpone the idle cutoff.
func (t *Tracker) StartTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startLocked()
}

// StopTracking cancels the tick and idle timers without flushing.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// ReportActivity is called on every user signal. It re-arms the idle timer
// and makes sure the tick is running.
func (t *Tracker) ReportActivity() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	if t.idle != nil {
		t.idle.Stop()
		t.idle = nil
	}
	t.startLocked()
}

// VisibilityChanged stops and flushes when the page is hidden.
// Becoming visible again waits for the next ReportActivity.
func (t *Tracker) VisibilityChanged(hidden bool) {
	if !hidden {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.stopLocked()
	pending := t.takeLocked()
	t.mu.Unlock()

	t.send(pending)
}

// Flush sends the unsaved seconds now. Nothing is sent when the counter is zero.
func (t *Tracker) Flush() {
	t.mu.Lock()
	pending := t.takeLocked()
	t.mu.Unlock()

	t.send(pending)
}

// Close stops every timer and hands pending seconds to Sender.Beacon.
// It is safe to call more than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.stopLocked()
	if t.flush != nil {
		t.flush.Stop()
		t.flush = nil
	}
	pending := t.takeLocked()
	t.mu.Unlock()

	if pending != nil {
		t.sender.Beacon(*pending)
	}
}

// Unsaved returns the seconds counted since the last flush.
func (t *Tracker) Unsaved() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unsaved
}

func (t *Tracker) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

func (t *Tracker) startLocked() {
	if t.closed || t.resourceID == "" {
		return
	}
	if t.idle == nil {
		t.armIdleLocked()
	}
	if t.tracking {
		return
	}
	t.tracking = true
	t.tickGen++
	t.armTickLocked(t.tickGen)
}

func (t *Tracker) armIdleLocked() {
	t.idleGen++
	gen := t.idleGen
	t.idle = t.clock.AfterFunc(t.cfg.IdleTimeout, func() { t.onIdle(gen) })
}

func (t *Tracker) stopLocked() {
	t.tracking = false
	t.tickGen++
	t.idleGen++
	if t.tick != nil {
		t.tick.Stop()
		t.tick = nil
	}
	if t.idle != nil {
		t.idle.Stop()
		t.idle = nil
	}
}

func (t *Tracker) armTickLocked(gen uint64) {
	t.tick = t.clock.AfterFunc(t.cfg.TickInterval, func() { t.onTick(gen) })
}

func (t *Tracker) onTick(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.tickGen || !t.tracking {
		return
	}
	t.unsaved += int(t.cfg.TickInterval / time.Second)
	t.armTickLocked(gen)
}

func (t *Tracker) onIdle(gen uint64) {
	t.mu.Lock()
	if gen != t.idleGen || t.closed {
		t.mu.Unlock()
		return
	}
	t.log.Debug("tracker idle", "resourceId", t.resourceID, "unsaved", t.unsaved)
	t.stopLocked()
	pending := t.takeLocked()
	t.mu.Unlock()

	t.send(pending)
}

func (t *Tracker) armFlushLocked() {
	t.flush = t.clock.AfterFunc(t.cfg.FlushInterval, t.onFlush)
}

func (t *Tracker) onFlush() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	pending := t.takeLocked()
	t.armFlushLocked()
	t.mu.Unlock()

	t.send(pending)
}

// takeLocked resets the counter and returns what it held, or nil when there is nothing to send.
func (t *Tracker) takeLocked() *Sample {
	if t.unsaved <= 0 || t.resourceID == "" {
		return nil
	}
	s := &Sample{
		ResourceID:   t.resourceID,
		ResourceType: t.resourceType,
		Seconds:      t.unsaved,
		Timestamp:    t.clock.Now().UTC(),
	}
	t.unsaved = 0
	return s
}

// send delivers a sample in the background. Failures are logged and dropped;
// the counter was already reset, so that batch is lost.
func (t *Tracker) send(s *Sample) {
	if s == nil {
		return
	}
	sample := *s
	t.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.SyncTimeout)
		defer cancel()
		if err := t.sender.Sync(ctx, sample); err != nil {
			t.log.Debug("engagement sync failed", "resourceId", sample.ResourceID, "seconds", sample.Seconds, "err", err)
		}
	})
}
