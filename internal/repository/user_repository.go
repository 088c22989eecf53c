package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// UserStore is what the auth handlers and the CLI need from the staff
// account table.
type UserStore interface {
	Create(ctx context.Context, u model.StaffUser) error
	GetByUsername(ctx context.Context, username string) (model.StaffUser, error)
	GetByEmail(ctx context.Context, email string) (model.StaffUser, error)
	GetByID(ctx context.Context, id string) (model.StaffUser, error)
}

// UserRepo stores staff accounts in the `staff_users` table.  Queries are
// written with '?' placeholders and rebound for PostgreSQL.
type UserRepo struct {
	DB *sql.DB
	d  dialect
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db, d: mysqlDialect} }

// NewPostgresUserRepo returns a UserRepo speaking the PostgreSQL dialect.
// db is usually obtained with stdlib.OpenDBFromPool.
func NewPostgresUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db, d: postgresDialect} }

const userColumns = "id,username,email,password_hash,role,is_active,created_at,updated_at"

// Create inserts u.  Username and email are normalized to lower case.
func (r *UserRepo) Create(ctx context.Context, u model.StaffUser) error {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		rebind(r.d, "INSERT INTO staff_users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?)"),
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByUsername fetches an account by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.StaffUser, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		rebind(r.d, "SELECT "+userColumns+" FROM staff_users WHERE username=? LIMIT 1"), username))
}

// GetByEmail fetches an account by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.StaffUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		rebind(r.d, "SELECT "+userColumns+" FROM staff_users WHERE email=? LIMIT 1"), email))
}

// GetByID fetches an account by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.StaffUser, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		rebind(r.d, "SELECT "+userColumns+" FROM staff_users WHERE id=? LIMIT 1"), id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.StaffUser, error) {
	var u model.StaffUser
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// rebind rewrites '?' placeholders for d.  Query text never contains a
// literal '?' so a plain scan is enough.
func rebind(d dialect, query string) string {
	if d.name == mysqlDialect.name {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
