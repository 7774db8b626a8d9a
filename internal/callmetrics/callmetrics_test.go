package callmetrics

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/hamzaKhattat/powerdialer/internal/metrics"
)

type fakeStore struct {
    mu      sync.Mutex
    records []CallRecord
}

func (f *fakeStore) Append(_ context.Context, record CallRecord) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.records = append(f.records, record)
    return nil
}

func (f *fakeStore) all() []CallRecord {
    f.mu.Lock()
    defer f.mu.Unlock()
    out := make([]CallRecord, len(f.records))
    copy(out, f.records)
    return out
}

func TestCallStartedThenEndedPersists(t *testing.T) {
    store := &fakeStore{}
    r := New(store, metrics.NoOp{})
    defer r.Shutdown(context.Background())

    ctx := context.Background()
    r.CallStarted(ctx, "agent_0001", "(212) 555-0100")

    _, ok := r.InFlight("agent_0001")
    require.True(t, ok, "expected call to be in flight")

    r.CallEnded(ctx, "agent_0001", "(212) 555-0100")

    _, ok = r.InFlight("agent_0001")
    assert.False(t, ok, "expected no in-flight call after CallEnded")

    waitUntilRecorded(t, store, 1)
    records := store.all()
    require.Len(t, records, 1)
    assert.Equal(t, "agent_0001", records[0].AgentID)
    assert.Equal(t, "(212) 555-0100", records[0].Number)
    assert.False(t, records[0].EndedAt.Before(records[0].StartedAt), "expected EndedAt to be at or after StartedAt")
}

func TestCallEndedWithMismatchedNumberDropsRecord(t *testing.T) {
    store := &fakeStore{}
    r := New(store, metrics.NoOp{})
    defer r.Shutdown(context.Background())

    ctx := context.Background()
    r.CallStarted(ctx, "agent_0001", "(212) 555-0100")
    r.CallEnded(ctx, "agent_0001", "(212) 555-9999")

    _, ok := r.InFlight("agent_0001")
    assert.False(t, ok, "expected in-flight entry to be cleared even on mismatch")

    time.Sleep(50 * time.Millisecond)
    assert.Empty(t, store.all(), "expected no record to be persisted on mismatch")
}

func TestCallEndedWithNoInFlightCallIsDropped(t *testing.T) {
    store := &fakeStore{}
    r := New(store, metrics.NoOp{})
    defer r.Shutdown(context.Background())

    r.CallEnded(context.Background(), "agent_0001", "(212) 555-0100")

    time.Sleep(50 * time.Millisecond)
    assert.Empty(t, store.all(), "expected no record to be persisted")
}

func waitUntilRecorded(t *testing.T, store *fakeStore, n int) {
    t.Helper()
    deadline := time.Now().Add(time.Second)
    for time.Now().Before(deadline) {
        if len(store.all()) >= n {
            return
        }
        time.Sleep(5 * time.Millisecond)
    }
    t.Fatalf("expected %d records before deadline, got %d", n, len(store.all()))
}
