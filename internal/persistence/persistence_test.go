package persistence

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/hamzaKhattat/powerdialer/internal/callmetrics"
)

func TestMemoryStoreSummarize(t *testing.T) {
    store := NewMemoryStore()
    ctx := context.Background()
    now := time.Now()

    records := []callmetrics.CallRecord{
        {AgentID: "agent_0001", Number: "(212) 555-0100", StartedAt: now, EndedAt: now.Add(10 * time.Second)},
        {AgentID: "agent_0001", Number: "(212) 555-0101", StartedAt: now, EndedAt: now.Add(20 * time.Second)},
        {AgentID: "agent_0002", Number: "(212) 555-0102", StartedAt: now, EndedAt: now.Add(5 * time.Second)},
    }
    for _, r := range records {
        require.NoError(t, store.Append(ctx, r))
    }

    summaries := store.Summarize()
    require.Len(t, summaries, 2)

    byAgent := make(map[string]AgentSummary, len(summaries))
    for _, s := range summaries {
        byAgent[s.AgentID] = s
    }

    agent1 := byAgent["agent_0001"]
    assert.Equal(t, 2, agent1.TotalCalls)
    assert.Equal(t, 15.0, agent1.AverageDuration)

    agent2 := byAgent["agent_0002"]
    assert.Equal(t, 1, agent2.TotalCalls)
}

func TestMemoryStoreIgnoresInFlightRecords(t *testing.T) {
    store := NewMemoryStore()
    ctx := context.Background()
    now := time.Now()

    require.NoError(t, store.Append(ctx, callmetrics.CallRecord{
        AgentID: "agent_0001", Number: "(212) 555-0100", StartedAt: now,
    }))

    assert.Empty(t, store.Summarize(), "in-flight (zero EndedAt) records should be excluded from the summary")
    assert.Len(t, store.Records(), 1, "Records should still return the raw record")
}
