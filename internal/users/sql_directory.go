package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/ageniuscoder/pairchat/backend/internal/storage"
)

type SQLDirectory struct {
	db      *sql.DB
	dialect storage.Dialect
}

func NewSQLDirectory(db *sql.DB, dialect storage.Dialect) *SQLDirectory {
	return &SQLDirectory{db: db, dialect: dialect}
}

func (d *SQLDirectory) List(ctx context.Context) ([]User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, username FROM users ORDER BY id`)
	if err != nil {
		return nil, domain.Storage("list users", err)
	}
	defer rows.Close()

	list := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, domain.Storage("scan user", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("iterate users", err)
	}
	return list, nil
}

func (d *SQLDirectory) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx, d.dialect.Rebind(`SELECT 1 FROM users WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, domain.Storage("lookup user", err)
	}
	return true, nil
}

func (d *SQLDirectory) Get(ctx context.Context, id string) (User, error) {
	var u User
	err := d.db.QueryRowContext(ctx, d.dialect.Rebind(`SELECT id, username FROM users WHERE id = ?`), id).
		Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, domain.NotFoundf("user %s not found", id)
	}
	if err != nil {
		return User{}, domain.Storage("get user", err)
	}
	return u, nil
}

// Upsert keeps a local copy of a user known to the identity provider.
func (d *SQLDirectory) Upsert(ctx context.Context, u User) error {
	if u.ID == "" {
		return domain.Validationf("user id is required")
	}
	_, err := d.db.ExecContext(ctx, d.dialect.Rebind(
		`INSERT INTO users (id, username) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET username = CASE
		     WHEN excluded.username <> '' THEN excluded.username
		     ELSE users.username END`),
		u.ID, u.Username)
	return domain.Storage("upsert user", err)
}

var _ Directory = (*SQLDirectory)(nil)
