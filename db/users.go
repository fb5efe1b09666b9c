package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"indix/models"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)",
		id, email, passwordHash)
	if err != nil {
		return models.User{}, err
	}

	return s.UserByID(ctx, id)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, email_verified, created_at FROM users WHERE email = ?",
		email)
	return scanUser(row)
}

func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, email_verified, created_at FROM users WHERE id = ?",
		id)
	return scanUser(row)
}

func (s *Store) MarkEmailVerified(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET email_verified = TRUE WHERE email = ?", email)
	return err
}

func (s *Store) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE email = ?", passwordHash, email)
	return err
}

// SaveOTP replaces any outstanding code for the same email and purpose,
// so only the most recently issued code is redeemable.
func (s *Store) SaveOTP(ctx context.Context, email, code, purpose string, expiresAt time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM otp_codes WHERE email = ? AND purpose = ?", email, purpose); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO otp_codes (email, code, purpose, expires_at) VALUES (?, ?, ?, ?)",
		email, code, purpose, expiresAt)
	return err
}

// ConsumeOTP deletes the code on success so it is single-use. Expired or
// unknown codes return ErrNotFound.
func (s *Store) ConsumeOTP(ctx context.Context, email, code, purpose string, now time.Time) error {
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT expires_at FROM otp_codes WHERE email = ? AND code = ? AND purpose = ?",
		email, code, purpose).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if now.After(expiresAt) {
		return ErrNotFound
	}

	_, err = s.db.ExecContext(ctx,
		"DELETE FROM otp_codes WHERE email = ? AND code = ? AND purpose = ?",
		email, code, purpose)
	return err
}

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.EmailVerified, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}
