package postgres

import (
	"context"
	"time"

	"github.com/pulsefeed/pulse/internal/auth/domain"
	"github.com/pulsefeed/pulse/pkg/idx"
)

type refreshSessionsRepo struct {
	q queryer
}

func (r *refreshSessionsRepo) CreateRefreshSession(ctx context.Context, s domain.RefreshSession) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *refreshSessionsRepo) ListActiveRefreshSessions(ctx context.Context, userID idx.ID, now time.Time) ([]domain.RefreshSession, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at DESC`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.RefreshSession
	for rows.Next() {
		var s domain.RefreshSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *refreshSessionsRepo) DeleteRefreshSession(ctx context.Context, id idx.ID) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshSessionsRepo) DeleteAllUserRefreshSessions(ctx context.Context, userID idx.ID) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshSessionsRepo) DeleteExpiredRefreshSessions(ctx context.Context, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE expires_at <= $1`, now)
	return err
}
