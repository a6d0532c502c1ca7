package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/ev-asset-platform/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

const accountColumns = "id,name,email,password_hash,role,status,last_login,created_at,updated_at"

// AccountRepo is the credential store.  It owns the `accounts` table.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

// NormalizeEmail lower-cases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts the account.  ID, timestamps and email normalization must
// already be applied by the caller.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (id,name,email,password_hash,role,status,last_login,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)",
		a.ID, a.Name, a.Email, a.PasswordHash, string(a.Role), string(a.Status), nullTime(a.LastLogin), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// FindByEmail fetches an account by normalized email.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", NormalizeEmail(email))
	return scanAccount(row)
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id)
	return scanAccount(row)
}

// TouchLastLogin records a successful login.
func (r *AccountRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET last_login=?, updated_at=? WHERE id=?", at, at, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetStatus changes the lifecycle status of an account.
func (r *AccountRepo) SetStatus(ctx context.Context, id string, status model.Status, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET status=?, updated_at=? WHERE id=?", string(status), at, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpsertAdmin creates an admin account or, when the email exists, promotes
// it to admin with the given password hash.  Only the provisioning command
// calls this.
func (r *AccountRepo) UpsertAdmin(ctx context.Context, a *model.Account) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (id,name,email,password_hash,role,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?) "+
			"ON DUPLICATE KEY UPDATE name=VALUES(name), password_hash=VALUES(password_hash), role=VALUES(role), status=VALUES(status), updated_at=VALUES(updated_at)",
		a.ID, a.Name, a.Email, a.PasswordHash, string(model.RoleAdmin), string(model.StatusActive), a.CreatedAt, a.UpdatedAt)
	return err
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	var (
		a         model.Account
		role      string
		status    string
		lastLogin sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &status, &lastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Role = model.Role(role)
	a.Status = model.Status(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLogin = &t
	}
	return &a, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
