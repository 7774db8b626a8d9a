// Package callmetrics tracks in-flight calls and hands completed calls
// off to a persistence worker via an asynchronous queue. The in-flight
// map and the completion queue are the only process-wide shared state in
// this subsystem; everything else is per-agent.
package callmetrics

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/hamzaKhattat/powerdialer/internal/metrics"
    "github.com/hamzaKhattat/powerdialer/pkg/logger"
)

// CallRecord describes one call attempt. EndedAt is the zero Time while
// the call is in flight.
type CallRecord struct {
    ID        string
    AgentID   string
    Number    string
    StartedAt time.Time
    EndedAt   time.Time
}

// Store is where completed call records are durably appended; see
// internal/persistence for the in-memory and MySQL implementations.
type Store interface {
    Append(ctx context.Context, record CallRecord) error
}

type completionItem struct {
    record CallRecord
}

// Recorder owns the in-flight call map and the completion queue feeding
// a Store. At most one in-flight entry exists per agent id.
type Recorder struct {
    store Store
    stats metrics.Sink

    mu       sync.Mutex
    inFlight map[string]CallRecord

    queue chan *completionItem
    wg    sync.WaitGroup
}

// New starts a Recorder backed by store, and its background persistence
// worker: an inline drain loop that calls store.Append directly as
// completions arrive. stats receives the in-flight call count and each
// completed call's duration; pass metrics.NoOp{} when metrics
// collection is disabled.
func New(store Store, stats metrics.Sink) *Recorder {
    r := &Recorder{
        store:    store,
        stats:    stats,
        inFlight: make(map[string]CallRecord),
        queue:    make(chan *completionItem, 256),
    }
    r.wg.Add(1)
    go r.drain()
    return r
}

// drain ranges over the queue until Shutdown closes it, so every
// completion enqueued before the close is appended before the worker
// returns — the at-least-once guarantee depends on this draining to
// empty rather than racing a shutdown signal against pending items.
func (r *Recorder) drain() {
    defer r.wg.Done()
    ctx := context.Background()
    for item := range r.queue {
        if err := r.store.Append(ctx, item.record); err != nil {
            logger.WithContext(ctx).WithField("agent_id", item.record.AgentID).WithError(err).
                Error("failed to persist call record")
        }
    }
}

// CallStarted records a new in-flight call for agentID, overwriting any
// previous entry. A previous entry indicates a protocol violation
// upstream (the Power Dialer should have already closed it out); it is
// logged, not treated as a hard error.
func (r *Recorder) CallStarted(ctx context.Context, agentID, number string) {
    r.mu.Lock()
    if _, exists := r.inFlight[agentID]; exists {
        logger.WithContext(ctx).WithField("agent_id", agentID).
            Warn("call started while a previous call was still in flight; overwriting")
    }
    r.inFlight[agentID] = CallRecord{
        ID:        uuid.NewString(),
        AgentID:   agentID,
        Number:    number,
        StartedAt: time.Now(),
    }
    count := len(r.inFlight)
    r.mu.Unlock()
    r.stats.SetGauge("calls_in_flight", float64(count), nil)
}

// CallEnded closes out the in-flight call for agentID. If there is no
// in-flight call, or the stored number does not match number, the entry
// (if any) is dropped and the completion is not enqueued — the partial
// record is discarded rather than persisted with inconsistent data.
func (r *Recorder) CallEnded(ctx context.Context, agentID, number string) {
    r.mu.Lock()
    call, exists := r.inFlight[agentID]
    if !exists || call.Number != number {
        delete(r.inFlight, agentID)
        count := len(r.inFlight)
        r.mu.Unlock()
        r.stats.SetGauge("calls_in_flight", float64(count), nil)
        logger.WithContext(ctx).WithField("agent_id", agentID).WithField("number", number).
            Error("call ended for a call not in progress")
        return
    }
    call.EndedAt = time.Now()
    delete(r.inFlight, agentID)
    count := len(r.inFlight)
    r.mu.Unlock()

    r.stats.SetGauge("calls_in_flight", float64(count), nil)
    r.stats.ObserveHistogram("call_duration", call.EndedAt.Sub(call.StartedAt).Seconds(), map[string]string{"agent_id": agentID})
    r.queue <- &completionItem{record: call}
}

// InFlight reports whether agentID currently has an open call, for
// invariant checks and tests.
func (r *Recorder) InFlight(agentID string) (CallRecord, bool) {
    r.mu.Lock()
    defer r.mu.Unlock()
    call, ok := r.inFlight[agentID]
    return call, ok
}

// InFlightCount reports the number of currently open calls.
func (r *Recorder) InFlightCount() int {
    r.mu.Lock()
    defer r.mu.Unlock()
    return len(r.inFlight)
}

// Shutdown closes the completion queue and waits for the background
// worker to drain every completion enqueued before this call. Callers
// must not call CallEnded concurrently with or after Shutdown.
func (r *Recorder) Shutdown(_ context.Context) {
    close(r.queue)
    r.wg.Wait()
}
