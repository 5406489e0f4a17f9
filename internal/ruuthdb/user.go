package ruuthdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/outurnate/ruuth/internal/apperror"
)

// User is the persisted row shape: a username, an Argon2id PHC hash string,
// and a 128-byte TOTP secret.
type User struct {
	Username     string
	PasswordHash string
	TOTPSecret   []byte
}

// FindUser returns the user row for username, or apperror.NewNotFound if
// no such user exists.
func (db *DB) FindUser(ctx context.Context, username string) (*User, error) {
	query := fmt.Sprintf("SELECT username, password_hash, totp_secret FROM %s WHERE username = %s", db.userTable(), db.Placeholder(1))

	var user User
	err := db.Pool.QueryRowContext(ctx, query, username).Scan(&user.Username, &user.PasswordHash, &user.TOTPSecret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("querying user: %w", err))
	}
	return &user, nil
}

// InsertUser creates a new user row. Returns apperror.NewConflict if the
// username already exists.
func (db *DB) InsertUser(ctx context.Context, user *User) error {
	if _, err := db.FindUser(ctx, user.Username); err == nil {
		return apperror.NewConflict("a user with this username already exists")
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (username, password_hash, totp_secret) VALUES (%s, %s, %s)",
		db.userTable(), db.Placeholder(1), db.Placeholder(2), db.Placeholder(3),
	)
	if _, err := db.Pool.ExecContext(ctx, query, user.Username, user.PasswordHash, user.TOTPSecret); err != nil {
		return apperror.NewInternal(fmt.Errorf("inserting user: %w", err))
	}
	return nil
}

// UpdateUser replaces the password hash and/or TOTP secret for an existing
// user. Returns apperror.NewNotFound if the username doesn't exist.
func (db *DB) UpdateUser(ctx context.Context, user *User) error {
	query := fmt.Sprintf(
		"UPDATE %s SET password_hash = %s, totp_secret = %s WHERE username = %s",
		db.userTable(), db.Placeholder(1), db.Placeholder(2), db.Placeholder(3),
	)
	result, err := db.Pool.ExecContext(ctx, query, user.PasswordHash, user.TOTPSecret, user.Username)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("updating user: %w", err))
	}
	return requireRowsAffected(result, "user not found")
}

// DeleteUser removes a user row. Returns apperror.NewNotFound if the
// username doesn't exist.
func (db *DB) DeleteUser(ctx context.Context, username string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE username = %s", db.userTable(), db.Placeholder(1))
	result, err := db.Pool.ExecContext(ctx, query, username)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting user: %w", err))
	}
	return requireRowsAffected(result, "user not found")
}

func requireRowsAffected(result sql.Result, notFoundMessage string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("checking rows affected: %w", err))
	}
	if n == 0 {
		return apperror.NewNotFound(notFoundMessage)
	}
	return nil
}
