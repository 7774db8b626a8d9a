// Package persistence implements the Persistence Worker: it durably
// stores completed call records. Two Store implementations satisfy
// callmetrics.Store: an in-memory slice for tests and the "memory"
// database backend, and a MySQL-backed store for production.
package persistence

import (
    "context"
    "database/sql"
    "sync"
    "time"

    "github.com/hamzaKhattat/powerdialer/internal/callmetrics"
    "github.com/hamzaKhattat/powerdialer/internal/db"
    "github.com/hamzaKhattat/powerdialer/pkg/errors"
)

const dbTimeout = 10 * time.Second

// AgentSummary is one row of the per-agent call report: total calls
// placed and average call duration in seconds.
type AgentSummary struct {
    AgentID         string
    TotalCalls      int
    AverageDuration float64
}

// MemoryStore appends call records to a mutex-guarded slice. It never
// loses a record and never blocks, which makes it suitable for the
// "memory" database backend and for tests that assert on
// callmetrics.CallRecord history.
type MemoryStore struct {
    mu      sync.Mutex
    records []callmetrics.CallRecord
}

// NewMemoryStore builds an empty in-memory call record store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, record callmetrics.CallRecord) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.records = append(s.records, record)
    return nil
}

// Records returns a copy of every call record appended so far, for
// tests. The `report` CLI command does not read it.
func (s *MemoryStore) Records() []callmetrics.CallRecord {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]callmetrics.CallRecord, len(s.records))
    copy(out, s.records)
    return out
}

// Summarize groups Records by agent id the same way the MySQL-backed
// store's SQL query does, skipping records with no end time. Agents are
// listed in the order they first appear.
func (s *MemoryStore) Summarize() []AgentSummary {
    s.mu.Lock()
    defer s.mu.Unlock()

    totals := make(map[string]int)
    durations := make(map[string]float64)
    order := make([]string, 0)

    for _, r := range s.records {
        if r.EndedAt.IsZero() {
            continue
        }
        if _, seen := totals[r.AgentID]; !seen {
            order = append(order, r.AgentID)
        }
        totals[r.AgentID]++
        durations[r.AgentID] += r.EndedAt.Sub(r.StartedAt).Seconds()
    }

    summaries := make([]AgentSummary, 0, len(order))
    for _, agentID := range order {
        summaries = append(summaries, AgentSummary{
            AgentID:         agentID,
            TotalCalls:      totals[agentID],
            AverageDuration: durations[agentID] / float64(totals[agentID]),
        })
    }
    return summaries
}

// MySQLStore persists call records to the CALL_RECORDS table.
type MySQLStore struct {
    conn *db.DB
}

// NewMySQLStore wraps an already-open database connection and ensures
// the CALL_RECORDS table exists. Schema creation is a single idempotent
// statement rather than a migration tool, since the schema has never
// changed shape across versions.
func NewMySQLStore(conn *db.DB) (*MySQLStore, error) {
    s := &MySQLStore{conn: conn}
    if err := s.ensureSchema(); err != nil {
        return nil, err
    }
    return s, nil
}

func (s *MySQLStore) ensureSchema() error {
    const schema = `
CREATE TABLE IF NOT EXISTS CALL_RECORDS (
    id           VARCHAR(36)  NOT NULL PRIMARY KEY,
    agent_id     VARCHAR(64)  NOT NULL,
    called_number VARCHAR(32) NOT NULL,
    call_start   DATETIME(6)  NOT NULL,
    call_end     DATETIME(6)  NOT NULL,
    INDEX agent_idx (agent_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

    ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
    defer cancel()

    if _, err := s.conn.ExecContext(ctx, schema); err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to create CALL_RECORDS table")
    }
    return nil
}

func (s *MySQLStore) Append(ctx context.Context, record callmetrics.CallRecord) error {
    return s.conn.Transaction(ctx, func(tx *sql.Tx) error {
        _, err := tx.ExecContext(ctx,
            `INSERT INTO CALL_RECORDS (id, agent_id, called_number, call_start, call_end) VALUES (?, ?, ?, ?, ?)`,
            record.ID, record.AgentID, record.Number, record.StartedAt, record.EndedAt)
        return err
    })
}

// Summarize runs the per-agent reporting query: total calls and average
// duration in seconds, grouped by agent id.
func (s *MySQLStore) Summarize(ctx context.Context) ([]AgentSummary, error) {
    rows, err := s.conn.QueryContext(ctx, `
SELECT agent_id,
       COUNT(*) AS total_calls,
       AVG(TIMESTAMPDIFF(MICROSECOND, call_start, call_end)) / 1000000.0 AS avg_duration
FROM CALL_RECORDS
GROUP BY agent_id
ORDER BY agent_id`)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to query call record summary")
    }
    defer rows.Close()

    var summaries []AgentSummary
    for rows.Next() {
        var sum AgentSummary
        if err := rows.Scan(&sum.AgentID, &sum.TotalCalls, &sum.AverageDuration); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan call record summary row")
        }
        summaries = append(summaries, sum)
    }
    if err := rows.Err(); err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "error iterating call record summary rows")
    }
    return summaries, nil
}
