package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elderaid/elderaid/internal/model"
)

// Retry backoff for failed mirror writes.
const (
	OutboxBaseBackoff = 5 * time.Second
	OutboxMaxBackoff  = time.Hour
)

// OutboxBackoff returns the delay before retry number attempts (1-based).
func OutboxBackoff(attempts int) time.Duration {
	d := OutboxBaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= OutboxMaxBackoff {
			return OutboxMaxBackoff
		}
	}
	return d
}

const outboxColumns = `id, collection, doc_id, op, payload, attempts, last_error,
	created_at, next_attempt_at, delivered_at, dead`

// EnqueueOutbox records a pending mirror write. Call it in the same
// transaction as the relational change it mirrors.
func EnqueueOutbox(ctx context.Context, q Querier, collection, docID, op string, payload map[string]any) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encoding outbox payload: %w", err)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO mirror_outbox (collection, doc_id, op, payload) VALUES (?, ?, ?, ?)`,
		collection, docID, op, string(data),
	)
	if err != nil {
		return 0, fmt.Errorf("enqueueing outbox entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting outbox id: %w", err)
	}
	return id, nil
}

// GetOutboxEntry returns an outbox entry by ID.
func GetOutboxEntry(ctx context.Context, q Querier, id int64) (*model.OutboxEntry, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+outboxColumns+` FROM mirror_outbox WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting outbox entry: %w", err)
	}
	defer rows.Close()

	entries, err := scanOutbox(rows)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// ListDueOutbox returns undelivered, live entries whose retry time has come,
// oldest first.
func ListDueOutbox(ctx context.Context, q Querier, now time.Time, limit int) ([]model.OutboxEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+outboxColumns+` FROM mirror_outbox
		 WHERE delivered_at IS NULL AND dead = 0 AND next_attempt_at <= ?
		 ORDER BY id LIMIT ?`, sqlTime(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing due outbox entries: %w", err)
	}
	defer rows.Close()
	return scanOutbox(rows)
}

// ListPendingOutboxForDoc returns every undelivered entry for one document in
// the order they were recorded. Parked entries are included so callers can
// hold later writes behind them.
func ListPendingOutboxForDoc(ctx context.Context, q Querier, collection, docID string) ([]model.OutboxEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+outboxColumns+` FROM mirror_outbox
		 WHERE collection = ? AND doc_id = ? AND delivered_at IS NULL
		 ORDER BY id`, collection, docID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing outbox entries for %s/%s: %w", collection, docID, err)
	}
	defer rows.Close()
	return scanOutbox(rows)
}

// MarkOutboxDelivered records a successful mirror write.
func MarkOutboxDelivered(ctx context.Context, q Querier, id int64, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE mirror_outbox SET delivered_at = ?, last_error = NULL WHERE id = ?`,
		sqlTime(now), id,
	)
	if err != nil {
		return fmt.Errorf("marking outbox entry delivered: %w", err)
	}
	return nil
}

// RecordOutboxFailure bumps the attempt count and schedules the next retry.
// Once attempts reach maxAttempts the entry is parked as dead. Returns whether
// the entry is now dead.
func RecordOutboxFailure(ctx context.Context, q Querier, id int64, cause error, now time.Time, maxAttempts int) (bool, error) {
	var attempts int
	err := q.QueryRowContext(ctx,
		`SELECT attempts FROM mirror_outbox WHERE id = ?`, id,
	).Scan(&attempts)
	if err != nil {
		return false, fmt.Errorf("recording outbox failure: %w", err)
	}
	attempts++
	dead := maxAttempts > 0 && attempts >= maxAttempts

	_, err = q.ExecContext(ctx,
		`UPDATE mirror_outbox SET attempts = ?, last_error = ?, next_attempt_at = ?, dead = ? WHERE id = ?`,
		attempts, cause.Error(), sqlTime(now.Add(OutboxBackoff(attempts))), dead, id,
	)
	if err != nil {
		return false, fmt.Errorf("recording outbox failure: %w", err)
	}
	return dead, nil
}

// ReviveDeadOutbox makes parked entries eligible for delivery again.
func ReviveDeadOutbox(ctx context.Context, q Querier) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE mirror_outbox SET dead = 0, attempts = 0, next_attempt_at = CURRENT_TIMESTAMP
		 WHERE dead = 1 AND delivered_at IS NULL`,
	)
	if err != nil {
		return 0, fmt.Errorf("reviving dead outbox entries: %w", err)
	}
	return result.RowsAffected()
}

// GetOutboxStats counts pending and dead entries.
func GetOutboxStats(ctx context.Context, q Querier) (model.OutboxStats, error) {
	var s model.OutboxStats
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN dead = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN dead = 1 THEN 1 ELSE 0 END), 0)
		 FROM mirror_outbox WHERE delivered_at IS NULL`,
	).Scan(&s.Pending, &s.Dead)
	if err != nil {
		return s, fmt.Errorf("getting outbox stats: %w", err)
	}
	return s, nil
}

func scanOutbox(rows *sql.Rows) ([]model.OutboxEntry, error) {
	var entries []model.OutboxEntry
	for rows.Next() {
		var e model.OutboxEntry
		var payload string
		var lastError sql.NullString
		if err := rows.Scan(&e.ID, &e.Collection, &e.DocID, &e.Op, &payload, &e.Attempts, &lastError,
			&e.CreatedAt, &e.NextAttemptAt, &e.DeliveredAt, &e.Dead); err != nil {
			return nil, fmt.Errorf("scanning outbox entry: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
		dec.UseNumber()
		if err := dec.Decode(&e.Payload); err != nil {
			return nil, fmt.Errorf("decoding outbox payload %d: %w", e.ID, err)
		}
		e.LastError = lastError.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
