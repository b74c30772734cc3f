package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/marketplace-availability/internal/model"
	"github.com/iliyamo/marketplace-availability/internal/utils"
)

// ErrInvalidRole is returned when an account is created with a role other
// than VENDOR or ADMIN.
var ErrInvalidRole = errors.New("role must be VENDOR or ADMIN")

const userColumns = "id, email, password_hash, role, is_active, created_at, updated_at"

// UserRepo reads and provisions accounts. Vendors are users with the
// VENDOR role; their user id is the vendor id of their windows.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create hashes password and inserts an active account, returning its id.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role != model.RoleVendor && role != model.RoleAdmin {
		return 0, ErrInvalidRole
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, is_active) VALUES (?, ?, ?, TRUE)",
		normalizeEmail(email), hash, role)
	if isDuplicate(err) {
		return 0, ErrEmailExists
	}
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// SetActive enables or disables sign-in. Disabling does not revoke
// refresh tokens already issued; Refresh rejects them on next use.
func (r *UserRepo) SetActive(ctx context.Context, email string, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET is_active = ? WHERE email = ?", active, normalizeEmail(email))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// VendorExists reports whether id is an account with the VENDOR role.
// Inactive vendors still exist; their windows stay manageable by admins.
func (r *UserRepo) VendorExists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE id = ? AND role = ? LIMIT 1", id, model.RoleVendor).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// GetByEmail returns sql.ErrNoRows when no account matches.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", normalizeEmail(email)))
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
