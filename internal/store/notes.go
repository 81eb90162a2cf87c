package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pragma-notes/pragma/internal/data"
)

const selectNoteColumns = `SELECT id, title, tags, notebook_id, created_at, updated_at, system_updated_at FROM notes`

// CreateNote inserts a note and returns the canonical stored row. Tags are
// persisted as a JSON array, preserving order.
func (db *DB) CreateNote(ctx context.Context, newNote data.NewNote) (*data.Note, error) {
	if err := newNote.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	id := newNote.ID
	if id == "" {
		id = data.NewID()
	}
	revision := db.stampNow()

	tagsJSON, err := marshalTags(newNote.Tags)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal tags: %w", ErrValidation, err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %w", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notes (id, title, tags, notebook_id, created_at, updated_at, system_updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, newNote.Title, tagsJSON, newNote.NotebookID,
		toNanos(newNote.CreatedAt), toNanos(newNote.UpdatedAt), toNanos(revision),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert note: %w", ErrStorageUnavailable, err)
	}

	note, err := scanNote(tx.QueryRowContext(ctx, selectNoteColumns+` WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("%w: reselect note: %w", ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrStorageUnavailable, err)
	}

	return note, nil
}

// UpdateNote replaces title, tags and updatedAt, and stamps a fresh
// revision. Returns ErrNotFound when the id does not exist.
func (db *DB) UpdateNote(ctx context.Context, id string, update data.NoteUpdate) (*data.Note, error) {
	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	revision := db.stampNow()

	tagsJSON, err := marshalTags(update.Tags)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal tags: %w", ErrValidation, err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE notes SET title = ?, tags = ?, updated_at = ?, system_updated_at = ? WHERE id = ?`,
		update.Title, tagsJSON, toNanos(update.UpdatedAt), toNanos(revision), id,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: update note: %w", ErrStorageUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: rows affected: %w", ErrStorageUnavailable, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: note %s", ErrNotFound, id)
	}

	note, err := scanNote(db.conn.QueryRowContext(ctx, selectNoteColumns+` WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("%w: reselect note: %w", ErrStorageUnavailable, err)
	}

	return note, nil
}

// DeleteNote removes the row and records a tombstone inside one
// transaction. Content blocks of the note are NOT cascaded.
func (db *DB) DeleteNote(ctx context.Context, id string) (time.Time, error) {
	return db.deleteResource(ctx, "notes", data.TypeNote, id)
}

// NotesSince returns notes with a revision strictly greater than since, or
// every note when since is nil.
func (db *DB) NotesSince(ctx context.Context, since *time.Time) ([]data.Note, error) {
	query := selectNoteColumns
	var args []any
	if since != nil {
		query += ` WHERE system_updated_at > ?`
		args = append(args, toNanos(*since))
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query notes: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	notes := []data.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan note: %w", ErrStorageUnavailable, err)
		}
		notes = append(notes, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate notes: %w", ErrStorageUnavailable, err)
	}

	return notes, nil
}

func scanNote(row rowScanner) (*data.Note, error) {
	var note data.Note
	var tagsJSON string
	var createdAt, updatedAt, revision int64

	if err := row.Scan(&note.ID, &note.Title, &tagsJSON, &note.NotebookID,
		&createdAt, &updatedAt, &revision); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &note.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}

	note.CreatedAt = fromNanos(createdAt)
	note.UpdatedAt = fromNanos(updatedAt)
	note.Revision = fromNanos(revision)

	return &note, nil
}

// marshalTags normalizes nil to an empty JSON array so the column is never
// the string "null".
func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
