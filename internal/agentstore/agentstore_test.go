package agentstore

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/hamzaKhattat/powerdialer/internal/statemachine"
)

func TestMemoryStoreUnknownAgentReadsOffline(t *testing.T) {
    ctx := context.Background()
    store := NewMemoryStore()
    assert.Equal(t, statemachine.Offline, store.Get(ctx, "nobody"))
}

func TestMemoryStoreSetThenGet(t *testing.T) {
    ctx := context.Background()
    store := NewMemoryStore()
    store.Set(ctx, "agent_0001", statemachine.Busy)
    assert.Equal(t, statemachine.Busy, store.Get(ctx, "agent_0001"))
}

func TestMemoryStoreFlush(t *testing.T) {
    ctx := context.Background()
    store := NewMemoryStore()
    store.Set(ctx, "agent_0001", statemachine.Idle)
    store.Flush(ctx)
    assert.Equal(t, statemachine.Offline, store.Get(ctx, "agent_0001"))
}
