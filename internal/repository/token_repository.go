package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/marketplace-availability/internal/model"
)

// TokenRepo stores refresh tokens by their SHA-256 digest. Rows are
// never deleted on logout, only stamped with revoked_at.
type TokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		userID, tokenHash, exp.UTC())
	return err
}

// Find loads a token row regardless of its state.
func (r *TokenRepo) Find(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		   FROM refresh_tokens WHERE token_hash = ? LIMIT 1`,
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revokedAt, &t.CreatedAt)
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return t, nil
}

// ValidateRefresh returns the owner of a live token. Revoked, expired and
// unknown tokens all yield sql.ErrNoRows.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	t, err := r.Find(ctx, tokenHash)
	if err != nil {
		return 0, err
	}
	if t.RevokedAt != nil || !r.now().Before(t.ExpiresAt) {
		return 0, sql.ErrNoRows
	}
	return t.UserID, nil
}

func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.revoke(ctx, "token_hash = ?", tokenHash)
}

// RevokeAllForUser ends every session of userID.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return r.revoke(ctx, "user_id = ?", userID)
}

func (r *TokenRepo) revoke(ctx context.Context, where string, arg any) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE "+where+" AND revoked_at IS NULL",
		r.now(), arg)
	return err
}
