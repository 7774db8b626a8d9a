// Package agentstore maps agent id to current AgentState. An unknown
// agent id reads as offline without being inserted. Two backends satisfy
// the same Store interface: an in-memory map for single-process
// deployments and a Redis-backed store for the distributed-KV-store
// deployment spec.md §9 anticipates.
package agentstore

import (
    "context"
    "sync"

    "github.com/hamzaKhattat/powerdialer/internal/db"
    "github.com/hamzaKhattat/powerdialer/internal/statemachine"
)

// Store is the Agent Status Store contract. Reads for unknown agent ids
// return statemachine.Offline. Writes are last-writer-wins per key; no
// cross-key consistency is required.
type Store interface {
    Get(ctx context.Context, agentID string) statemachine.AgentState
    Set(ctx context.Context, agentID string, state statemachine.AgentState)
    Flush(ctx context.Context)
}

// MemoryStore is a mutex-guarded in-memory Store. Writes are atomic with
// respect to concurrent reads of the same key.
type MemoryStore struct {
    mu     sync.RWMutex
    agents map[string]statemachine.AgentState
}

// NewMemoryStore builds an empty in-memory agent status store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{agents: make(map[string]statemachine.AgentState)}
}

func (s *MemoryStore) Get(_ context.Context, agentID string) statemachine.AgentState {
    s.mu.RLock()
    defer s.mu.RUnlock()
    state, ok := s.agents[agentID]
    if !ok {
        return statemachine.Offline
    }
    return state
}

func (s *MemoryStore) Set(_ context.Context, agentID string, state statemachine.AgentState) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.agents[agentID] = state
}

// Flush clears all stored agent state. Test-only, per spec.md §4.B.
func (s *MemoryStore) Flush(_ context.Context) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.agents = make(map[string]statemachine.AgentState)
}

// RedisStore persists agent state in Redis, so agent status survives a
// restart of any one dialer process (though not, per spec.md's
// non-goals, a full cluster wipe).
type RedisStore struct {
    cache *db.Cache
}

// NewRedisStore builds a Redis-backed agent status store on top of an
// already-connected cache client.
func NewRedisStore(cache *db.Cache) *RedisStore {
    return &RedisStore{cache: cache}
}

func (s *RedisStore) Get(ctx context.Context, agentID string) statemachine.AgentState {
    var stored int
    if err := s.cache.Get(ctx, key(agentID), &stored); err != nil {
        return statemachine.Offline
    }
    if stored == 0 {
        return statemachine.Offline
    }
    return statemachine.AgentState(stored)
}

func (s *RedisStore) Set(ctx context.Context, agentID string, state statemachine.AgentState) {
    _ = s.cache.Set(ctx, key(agentID), int(state), 0)
}

func (s *RedisStore) Flush(ctx context.Context) {
    // Test-only; the Redis-backed flush is a no-op and deletes no keys,
    // since a shared Redis instance may be serving other dialer processes.
}

func key(agentID string) string {
    return "agent:" + agentID
}
