package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dispatchkit/notifyd/internal/domain"
)

type pgNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPgNotificationRepository returns a NotificationRepository backed by PostgreSQL.
func NewPgNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

func (r *pgNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(id, user_id, idempotency_key, message_type, provider, payload, status,
			 attempt_count, max_retries, send_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		n.ID, n.UserID, n.IdempotencyKey, n.Channel, n.Provider, n.Payload, n.Status,
		n.AttemptCount, n.MaxRetries, n.SendAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "idempotency_key") {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

const notificationColumns = `
	id, user_id, idempotency_key, message_type, provider, payload, status,
	attempt_count, max_retries, send_at, last_attempted_at, sent_at, failed_at,
	error_message, provider_response, created_at, updated_at`

func (r *pgNotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)

	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func (r *pgNotificationRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE idempotency_key = $1`, key)

	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func (r *pgNotificationRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Notification, int, error) {
	where, args := buildListWhere(f)
	limit := domain.ClampLimit(f.Limit)
	page := f.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int
	countQuery := "SELECT COUNT(*) FROM notifications" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	args = append(args, limit, offset)
	limitPlaceholder := fmt.Sprintf("$%d", len(args)-1)
	offsetPlaceholder := fmt.Sprintf("$%d", len(args))

	query := fmt.Sprintf(`
		SELECT %s
		FROM notifications%s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s`, notificationColumns, where, limitPlaceholder, offsetPlaceholder)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications, err := scanNotifications(rows)
	return notifications, total, err
}

func (r *pgNotificationRepository) IncrementAttempt(ctx context.Context, id string, at time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET attempt_count = attempt_count + 1, last_attempted_at = $1, updated_at = $1
		WHERE id = $2
		RETURNING attempt_count`, at, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return count, err
}

func (r *pgNotificationRepository) MarkSent(ctx context.Context, id, providerResponse string, sentAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $1, sent_at = $2, provider_response = $3, error_message = NULL, updated_at = $2
		WHERE id = $4`, domain.StatusSent, sentAt, providerResponse, id)
	return err
}

func (r *pgNotificationRepository) ScheduleRetry(ctx context.Context, id string, sendAt time.Time, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $1, send_at = $2, error_message = $3, updated_at = NOW()
		WHERE id = $4`, domain.StatusPending, sendAt, errMsg, id)
	return err
}

func (r *pgNotificationRepository) MarkFailed(ctx context.Context, id string, errMsg string, failedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $1, failed_at = $2, error_message = $3, updated_at = $2
		WHERE id = $4`, domain.StatusFailed, failedAt, errMsg, id)
	return err
}

func (r *pgNotificationRepository) Cancel(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var status domain.Status
	err = tx.QueryRow(ctx, `SELECT status FROM notifications WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock notification: %w", err)
	}
	if status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE notifications SET status = $1, failed_at = $2, updated_at = $2 WHERE id = $3`,
		domain.StatusCancelled, now, id); err != nil {
		return fmt.Errorf("cancel notification: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *pgNotificationRepository) ResurrectFromDLQ(ctx context.Context, id string, sendAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $1, attempt_count = 0, failed_at = NULL, error_message = NULL,
		    send_at = $2, updated_at = NOW()
		WHERE id = $3`, domain.StatusPending, sendAt, id)
	return err
}

func (r *pgNotificationRepository) FindDuePending(ctx context.Context, limit int) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = $1 AND send_at IS NOT NULL AND send_at <= NOW()
		ORDER BY send_at ASC
		LIMIT $2`, domain.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("find due pending: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ---- helpers ----

// scanNotification reads a single notification row from any pgx row type.
func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.IdempotencyKey, &n.Channel, &n.Provider, &n.Payload, &n.Status,
		&n.AttemptCount, &n.MaxRetries, &n.SendAt, &n.LastAttemptedAt, &n.SentAt, &n.FailedAt,
		&n.ErrorMessage, &n.ProviderResponse, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	var result []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// buildListWhere builds a parameterised WHERE clause from a ListFilter.
func buildListWhere(f domain.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Channel != nil {
		add("message_type = $%d", *f.Channel)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
