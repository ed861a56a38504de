package clickhouse

import (
	"context"
	"fmt"

	"linewatch/internal/domain"
	"linewatch/internal/storage"
)

// CallLogStore implements storage.CallLogStore using ClickHouse.
// The call log is append-only analytics data with no uniqueness to enforce,
// which is the workload the MergeTree engine is built for.
type CallLogStore struct {
	conn *Conn
}

// NewCallLogStore creates a new CallLogStore.
func NewCallLogStore(conn *Conn) *CallLogStore {
	return &CallLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CallLogStore = (*CallLogStore)(nil)

// Insert adds one call record.
func (s *CallLogStore) Insert(ctx context.Context, e *domain.CallLogEntry) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO upstream_call_log (endpoint, status, latency_ms, error_text, called_at)
		VALUES (?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		e.Endpoint, int32(e.Status), uint64(e.LatencyMs), e.ErrorText, uint64(e.CalledAt),
	)
	if err != nil {
		return fmt.Errorf("insert call log entry: %w", err)
	}
	return nil
}

// Recent retrieves up to limit records, newest first.
func (s *CallLogStore) Recent(ctx context.Context, limit int) ([]*domain.CallLogEntry, error) {
	query := `
		SELECT endpoint, status, latency_ms, error_text, called_at
		FROM upstream_call_log
		ORDER BY called_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent call log: %w", err)
	}
	defer rows.Close()

	var entries []*domain.CallLogEntry
	for rows.Next() {
		var e domain.CallLogEntry
		var status int32
		var latency, calledAt uint64

		if err := rows.Scan(&e.Endpoint, &status, &latency, &e.ErrorText, &calledAt); err != nil {
			return nil, fmt.Errorf("scan call log row: %w", err)
		}
		e.Status = int(status)
		e.LatencyMs = int64(latency)
		e.CalledAt = int64(calledAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call log rows: %w", err)
	}
	return entries, nil
}
