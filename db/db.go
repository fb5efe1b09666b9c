// Package db is the relational store behind the notes API. Every note
// access carries the owning user id as an equality predicate in the SQL
// itself, so ownership checks can never be skipped by a handler.
package db

import (
	"database/sql"
	"errors"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound covers both "row does not exist" and "row belongs to
// someone else" — callers must not be able to tell them apart.
var ErrNotFound = errors.New("db: not found")

type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS notes (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(255),
		content TEXT NOT NULL,
		user_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS otp_codes (
		email VARCHAR(255) NOT NULL,
		code VARCHAR(6) NOT NULL,
		purpose VARCHAR(32) NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS waitlist (
		email VARCHAR(255) PRIMARY KEY,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Connect opens the database and creates the schema. Production runs on
// mysql; tests run on an in-memory sqlite3 database with the same DDL.
func Connect(driver, dsn string) (*Store, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite3" && strings.Contains(dsn, ":memory:") {
		// An in-memory sqlite database exists per connection; keep the
		// pool at one so every query sees the same database.
		conn.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &Store{db: conn}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
