// Package numbers implements the Number Manager: a deduplication cache
// that prevents re-dialing a recently-contacted phone number across all
// agents, fed by a single-writer background queue so the hot read path
// (candidate selection) only reads the recency map and leaves every
// insert to the background worker.
package numbers

import (
    "context"
    "strings"
    "time"

    "github.com/hamzaKhattat/powerdialer/internal/metrics"
    "github.com/hamzaKhattat/powerdialer/pkg/logger"
)

// LeadSource returns one candidate phone number to dial.
type LeadSource func() string

// Recency is the storage contract a recency backend must satisfy. The
// Manager owns all policy (single-writer queue, sweep cadence); a Recency
// implementation only owns the data.
type Recency interface {
    // Contains reports whether normalized is present. An entry older than
    // the window still counts until an Expire call removes it.
    Contains(ctx context.Context, normalized string) bool
    // Insert records normalized as dialed at now.
    Insert(ctx context.Context, normalized string, now time.Time)
    // Expire removes every entry older than now.Add(-window).
    Expire(ctx context.Context, now time.Time, window time.Duration)
    // Warm bulk-inserts normalized->timestamp pairs ahead of an Expire call.
    Warm(ctx context.Context, entries map[string]time.Time)
    // Size reports the number of stored entries (including any not yet
    // expired by a sweep), for metrics/health.
    Size(ctx context.Context) int
}

type queueItem struct {
    number string
}

// Config configures a Manager.
type Config struct {
    ExcludeWindow    time.Duration
    ExpirySweepEvery time.Duration
    QueueTimeout     time.Duration
}

// Manager is the Number Manager. One background goroutine owns the
// recency map's writer side; GetNumber only ever reads it.
type Manager struct {
    recency Recency
    source  LeadSource
    cfg     Config
    stats   metrics.Sink

    queue chan *queueItem
    done  chan struct{}
}

// New starts a Manager and its background consumer goroutine. stats
// receives the recency cache's live size after every insert and sweep;
// pass metrics.NoOp{} when metrics collection is disabled.
func New(recency Recency, source LeadSource, cfg Config, stats metrics.Sink) *Manager {
    m := &Manager{
        recency: recency,
        source:  source,
        cfg:     cfg,
        stats:   stats,
        queue:   make(chan *queueItem, 64),
        done:    make(chan struct{}),
    }
    go m.listen()
    return m
}

// Normalize strips any character that is not a decimal digit. It is
// idempotent and its output contains only digits.
func Normalize(number string) string {
    var b strings.Builder
    b.Grow(len(number))
    for _, r := range number {
        if r >= '0' && r <= '9' {
            b.WriteRune(r)
        }
    }
    return b.String()
}

// GetNumber repeatedly asks the lead source for a candidate until it
// finds one whose normalized form is not currently in the recency cache,
// then asynchronously publishes the choice to the recency queue.
//
// The read path does not wait for the most recent writes to become
// visible: a candidate enqueued microseconds ago but not yet inserted by
// the background worker may be returned again. That is an accepted rare
// duplicate, not a correctness violation — the dialer is lossy-tolerant
// by design (spec: 4.D).
func (m *Manager) GetNumber(ctx context.Context) string {
    for {
        candidate := m.source()
        if !m.recency.Contains(ctx, Normalize(candidate)) {
            m.enqueue(candidate)
            return candidate
        }
    }
}

func (m *Manager) enqueue(number string) {
    select {
    case m.queue <- &queueItem{number: number}:
    case <-m.done:
    }
}

// WarmCache bulk-inserts normalized number -> timestamp pairs, then
// performs an immediate expiry sweep.
func (m *Manager) WarmCache(ctx context.Context, entries map[string]time.Time) {
    m.recency.Warm(ctx, entries)
    m.recency.Expire(ctx, time.Now(), m.cfg.ExcludeWindow)
}

// Shutdown signals the background worker to exit. It returns without
// waiting for the worker to finish.
func (m *Manager) Shutdown(ctx context.Context) {
    logger.Info("shutting down number manager")
    close(m.done)
}

// listen is the single-writer consumer: it performs every queued insert
// into the recency map (WarmCache is the only other writer), normalizing
// each enqueued number before inserting it, and sweeps expired entries
// after an insert once ExpirySweepEvery has passed and on every tick of
// a QueueTimeout ticker.
func (m *Manager) listen() {
    ctx := context.Background()
    lastExpiry := time.Now()
    timeout := m.cfg.QueueTimeout
    if timeout <= 0 {
        timeout = time.Second
    }

    ticker := time.NewTicker(timeout)
    defer ticker.Stop()

    for {
        select {
        case <-m.done:
            logger.Info("number manager listener exiting")
            return
        case item := <-m.queue:
            now := time.Now()
            m.recency.Insert(ctx, Normalize(item.number), now)
            if now.Sub(lastExpiry) > m.cfg.ExpirySweepEvery {
                m.recency.Expire(ctx, now, m.cfg.ExcludeWindow)
                lastExpiry = now
            }
            m.stats.SetGauge("recency_cache_size", float64(m.recency.Size(ctx)), nil)
        case <-ticker.C:
            // Periodic sweep every QueueTimeout, whether or not the queue
            // is busy, so recency entries expire even during a lull in
            // dialing.
            m.recency.Expire(ctx, time.Now(), m.cfg.ExcludeWindow)
            lastExpiry = time.Now()
            m.stats.SetGauge("recency_cache_size", float64(m.recency.Size(ctx)), nil)
        }
    }
}

// Size reports the number of stored recency entries, including any
// expired entries the next sweep has not yet removed.
func (m *Manager) Size(ctx context.Context) int {
    return m.recency.Size(ctx)
}
