package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dispatchkit/notifyd/internal/domain"
)

type pgDLQRepository struct {
	pool *pgxpool.Pool
}

// NewPgDLQRepository returns a DLQRepository backed by PostgreSQL.
func NewPgDLQRepository(pool *pgxpool.Pool) DLQRepository {
	return &pgDLQRepository{pool: pool}
}

func (r *pgDLQRepository) Create(ctx context.Context, entry *domain.DLQEntry) error {
	history, err := json.Marshal(entry.RetryHistory)
	if err != nil {
		return fmt.Errorf("marshal retry history: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO notification_dlq
			(id, notification_id, failure_reason, retry_history, moved_to_dlq_at, resolved)
		VALUES ($1,$2,$3,$4,$5,false)`,
		entry.ID, entry.NotificationID, entry.FailureReason, history, entry.MovedToDLQAt)
	if err != nil {
		if strings.Contains(err.Error(), "notification_id") {
			return domain.ErrDLQEntryExists
		}
		return fmt.Errorf("insert dlq entry: %w", err)
	}
	return nil
}

const dlqColumns = `id, notification_id, failure_reason, retry_history, moved_to_dlq_at, resolved, resolved_at, resolved_by`

func (r *pgDLQRepository) GetByID(ctx context.Context, id string) (*domain.DLQEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dlqColumns+` FROM notification_dlq WHERE id = $1`, id)
	e, err := scanDLQEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return e, err
}

func (r *pgDLQRepository) Resolve(ctx context.Context, id string, resolvedBy *string, resolvedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_dlq
		SET resolved = true, resolved_at = $1, resolved_by = $2
		WHERE id = $3 AND resolved = false`, resolvedAt, resolvedBy, id)
	if err != nil {
		return fmt.Errorf("resolve dlq entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM notification_dlq WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("resolve dlq entry: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrDLQAlreadyResolved
	}
	return nil
}

func (r *pgDLQRepository) List(ctx context.Context, resolved *bool, limit, offset int) ([]*domain.DLQEntry, int, error) {
	limit = domain.ClampLimit(limit)
	offset = domain.ClampOffset(offset)

	where := ""
	var args []any
	if resolved != nil {
		where = " WHERE resolved = $1"
		args = append(args, *resolved)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notification_dlq"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dlq entries: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s FROM notification_dlq%s
		ORDER BY moved_to_dlq_at DESC
		LIMIT $%d OFFSET $%d`, dlqColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list dlq entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.DLQEntry
	for rows.Next() {
		e, err := scanDLQEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *pgDLQRepository) CleanupOld(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM notification_dlq WHERE resolved = true AND resolved_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("cleanup dlq entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgDLQRepository) Stats(ctx context.Context) (domain.DLQStats, error) {
	var stats domain.DLQStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE NOT resolved),
		       COUNT(*) FILTER (WHERE resolved)
		FROM notification_dlq`).Scan(&stats.Total, &stats.Unresolved, &stats.Resolved)
	if err != nil {
		return domain.DLQStats{}, fmt.Errorf("dlq stats: %w", err)
	}
	return stats, nil
}

func scanDLQEntry(row pgx.Row) (*domain.DLQEntry, error) {
	var e domain.DLQEntry
	var history []byte
	err := row.Scan(&e.ID, &e.NotificationID, &e.FailureReason, &history,
		&e.MovedToDLQAt, &e.Resolved, &e.ResolvedAt, &e.ResolvedBy)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &e.RetryHistory); err != nil {
		return nil, fmt.Errorf("unmarshal retry history: %w", err)
	}
	return &e, nil
}
