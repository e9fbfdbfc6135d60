package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kozaktomas/face-animator/internal/expressionlog"
)

var _ expressionlog.Store = (*ExpressionLogRepository)(nil)

// ExpressionLogRepository provides PostgreSQL-backed expression log storage
type ExpressionLogRepository struct {
	pool *Pool
}

// NewExpressionLogRepository creates a new PostgreSQL expression log repository
func NewExpressionLogRepository(pool *Pool) *ExpressionLogRepository {
	return &ExpressionLogRepository{pool: pool}
}

// Create opens a log with the next session_NNN id
func (r *ExpressionLogRepository) Create(ctx context.Context, startTime time.Time) (*expressionlog.Log, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, "SELECT nextval('expression_log_seq')").Scan(&seq); err != nil {
		return nil, fmt.Errorf("allocate log id: %w", err)
	}

	l := &expressionlog.Log{
		ID:           fmt.Sprintf("session_%03d", seq),
		StartTime:    startTime,
		LastActivity: startTime,
		Status:       expressionlog.StatusActive,
	}

	query := `
		INSERT INTO expression_logs (id, start_time, last_activity, status)
		VALUES ($1, $2, $2, $3)
	`
	if _, err := r.pool.Exec(ctx, query, l.ID, startTime, string(l.Status)); err != nil {
		return nil, fmt.Errorf("create log: %w", err)
	}
	return l, nil
}

// Append stores an entry and bumps the log's last activity
func (r *ExpressionLogRepository) Append(ctx context.Context, id string, entry expressionlog.Entry) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE expression_logs SET last_activity = $2 WHERE id = $1", id, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("touch log: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	} else if n == 0 {
		return expressionlog.ErrNotFound
	}

	var landmarks any
	if len(entry.Landmarks) > 0 {
		landmarks = string(entry.Landmarks)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO expression_log_entries (log_id, expression, confidence, created_at, landmarks)
		VALUES ($1, $2, $3, $4, $5)
	`, id, entry.Expression, entry.Confidence, entry.Timestamp, landmarks)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entry: %w", err)
	}
	return nil
}

// Get loads a log with its last `recent` entries, oldest first
func (r *ExpressionLogRepository) Get(ctx context.Context, id string, recent int) (*expressionlog.Log, error) {
	l, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if recent <= 0 {
		return l, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT expression, confidence, created_at, landmarks
		FROM expression_log_entries
		WHERE log_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, id, recent)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e expressionlog.Entry
		var landmarks []byte
		if err := rows.Scan(&e.Expression, &e.Confidence, &e.Timestamp, &landmarks); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if len(landmarks) > 0 {
			e.Landmarks = landmarks
		}
		l.Entries = append(l.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	slices.Reverse(l.Entries)
	return l, nil
}

// End marks a log as ended
func (r *ExpressionLogRepository) End(ctx context.Context, id string, endTime time.Time) (*expressionlog.Log, error) {
	result, err := r.pool.Exec(ctx,
		"UPDATE expression_logs SET status = $2, end_time = $3 WHERE id = $1",
		id, string(expressionlog.StatusEnded), endTime)
	if err != nil {
		return nil, fmt.Errorf("end log: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	} else if n == 0 {
		return nil, expressionlog.ErrNotFound
	}
	return r.load(ctx, id)
}

// ExpireInactive times out active logs whose last activity is before the cutoff
func (r *ExpressionLogRepository) ExpireInactive(ctx context.Context, before, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE expression_logs
		SET status = $3, end_time = $2
		WHERE status = $4 AND last_activity < $1
		RETURNING id
	`, before, now, string(expressionlog.StatusTimeout), string(expressionlog.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("expire logs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired ids: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// Counts returns the number of active and total logs
func (r *ExpressionLogRepository) Counts(ctx context.Context) (expressionlog.Counts, error) {
	var c expressionlog.Counts
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = $1), COUNT(*)
		FROM expression_logs
	`, string(expressionlog.StatusActive)).Scan(&c.Active, &c.Total)
	if err != nil {
		return expressionlog.Counts{}, fmt.Errorf("count logs: %w", err)
	}
	return c, nil
}

// load reads the log row and its entry count without entries
func (r *ExpressionLogRepository) load(ctx context.Context, id string) (*expressionlog.Log, error) {
	query := `
		SELECT l.id, l.start_time, l.end_time, l.last_activity, l.status,
		       (SELECT COUNT(*) FROM expression_log_entries e WHERE e.log_id = l.id)
		FROM expression_logs l
		WHERE l.id = $1
	`

	var l expressionlog.Log
	var endTime sql.NullTime
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.StartTime,
		&endTime,
		&l.LastActivity,
		&status,
		&l.Total,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, expressionlog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get log: %w", err)
	}

	l.Status = expressionlog.Status(status)
	if endTime.Valid {
		t := endTime.Time
		l.EndTime = &t
	}
	return &l, nil
}
