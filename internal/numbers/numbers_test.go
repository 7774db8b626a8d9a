package numbers

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/hamzaKhattat/powerdialer/internal/metrics"
)

func TestNormalizeStripsNonDigitsAndIsIdempotent(t *testing.T) {
    in := "(212) 555-0100"
    got := Normalize(in)
    assert.Equal(t, "2125550100", got)
    assert.Equal(t, got, Normalize(got), "Normalize should be idempotent")
    assert.Regexp(t, "^[0-9]*$", got)
}

func TestGetNumberSkipsRecentDuplicates(t *testing.T) {
    queue := []string{"(212) 555-0100", "(212) 555-0100", "(212) 555-0101"}
    i := 0
    source := func() string {
        n := queue[i%len(queue)]
        i++
        return n
    }

    recency := NewMemoryRecency()
    mgr := New(recency, source, Config{
        ExcludeWindow:    60 * time.Second,
        ExpirySweepEvery: time.Minute,
        QueueTimeout:     50 * time.Millisecond,
    }, metrics.NoOp{})
    defer mgr.Shutdown(context.Background())

    ctx := context.Background()
    first := mgr.GetNumber(ctx)
    require.Equal(t, "(212) 555-0100", first)

    // Give the single-writer worker time to ingest the enqueued number.
    waitUntil(t, func() bool { return recency.Contains(ctx, Normalize(first)) })

    second := mgr.GetNumber(ctx)
    assert.Equal(t, "(212) 555-0101", second, "expected the second number to skip the duplicate")
}

func waitUntil(t *testing.T, cond func() bool) {
    t.Helper()
    deadline := time.Now().Add(time.Second)
    for time.Now().Before(deadline) {
        if cond() {
            return
        }
        time.Sleep(5 * time.Millisecond)
    }
    t.Fatal("condition not met before deadline")
}
