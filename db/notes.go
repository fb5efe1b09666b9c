package db

import (
	"context"
	"database/sql"
	"errors"

	"indix/models"

	"github.com/google/uuid"
)

// CreateNote inserts a new note owned by userID and returns the stored
// row. A nil title is persisted as NULL, which is distinct from "".
func (s *Store) CreateNote(ctx context.Context, userID string, title *string, content string) (models.Note, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (id, title, content, user_id) VALUES (?, ?, ?, ?)",
		id, nullableTitle(title), content, userID)
	if err != nil {
		return models.Note{}, err
	}

	return s.GetNote(ctx, id, userID)
}

// GetNote returns the note only when both id and user_id match. A note
// owned by another user yields ErrNotFound, the same as a missing row.
func (s *Store) GetNote(ctx context.Context, id, userID string) (models.Note, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, content, user_id, created_at, updated_at FROM notes WHERE id = ? AND user_id = ?",
		id, userID)
	return scanNote(row)
}

// UpdateNote writes content, and title according to the tri-state
// contract: a nil title leaves the stored title unchanged, a pointer to
// "" clears it to NULL, anything else overwrites it.
func (s *Store) UpdateNote(ctx context.Context, id, userID string, title *string, content string) (models.Note, error) {
	var err error
	if title == nil {
		_, err = s.db.ExecContext(ctx,
			"UPDATE notes SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?",
			content, id, userID)
	} else {
		_, err = s.db.ExecContext(ctx,
			"UPDATE notes SET title = ?, content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?",
			nullableTitle(title), content, id, userID)
	}
	if err != nil {
		return models.Note{}, err
	}

	// Re-read under the same predicate rather than trusting RowsAffected:
	// mysql reports zero affected rows for a no-op update unless the DSN
	// sets clientFoundRows.
	return s.GetNote(ctx, id, userID)
}

func nullableTitle(title *string) sql.NullString {
	if title == nil || *title == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *title, Valid: true}
}

func scanNote(row *sql.Row) (models.Note, error) {
	var note models.Note
	var title sql.NullString
	err := row.Scan(&note.ID, &title, &note.Content, &note.UserID, &note.CreatedAt, &note.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, ErrNotFound
	}
	if err != nil {
		return models.Note{}, err
	}
	if title.Valid {
		note.Title = &title.String
	}
	return note, nil
}
