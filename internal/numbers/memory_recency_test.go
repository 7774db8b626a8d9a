package numbers

import (
    "context"
    "fmt"
    "math/rand"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestExpireRemovesOnlyEntriesOlderThanWindow(t *testing.T) {
    ctx := context.Background()
    recency := NewMemoryRecency()

    now := time.Now()
    window := 5 * time.Second
    entries := make(map[string]time.Time, 100)
    for i := 0; i < 100; i++ {
        number := fmt.Sprintf("212555%04d", i)
        age := time.Duration(rand.Int63n(int64(10 * time.Second)))
        entries[number] = now.Add(-age)
    }

    recency.Warm(ctx, entries)
    recency.Expire(ctx, now, window)

    for number, ts := range entries {
        normalized := Normalize(number)
        present := recency.Contains(ctx, normalized)
        within := now.Sub(ts) <= window
        assert.Equal(t, within, present, "entry %s aged %s: survival should match the exclude window", number, now.Sub(ts))
    }
}

func TestContainsReflectsInsert(t *testing.T) {
    ctx := context.Background()
    recency := NewMemoryRecency()
    normalized := Normalize("(212) 555-0100")

    assert.False(t, recency.Contains(ctx, normalized), "fresh recency cache should not contain the number")
    recency.Insert(ctx, normalized, time.Now())
    assert.True(t, recency.Contains(ctx, normalized), "recency cache should contain the number after insert")
}
