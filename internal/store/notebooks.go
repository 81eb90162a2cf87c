package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pragma-notes/pragma/internal/data"
)

const selectNotebookColumns = `SELECT id, title, created_at, updated_at, system_updated_at FROM notebooks`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateNotebook inserts a notebook and returns the canonical stored row.
//
// A missing id is generated server-side. CreatedAt/UpdatedAt are taken from
// the payload; the revision is stamped here. The insert and the re-read
// happen inside one transaction so the returned row is exactly what later
// syncs will deliver.
func (db *DB) CreateNotebook(ctx context.Context, newNotebook data.NewNotebook) (*data.Notebook, error) {
	if err := newNotebook.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	id := newNotebook.ID
	if id == "" {
		id = data.NewID()
	}
	revision := db.stampNow()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %w", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notebooks (id, title, created_at, updated_at, system_updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, newNotebook.Title,
		toNanos(newNotebook.CreatedAt), toNanos(newNotebook.UpdatedAt), toNanos(revision),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert notebook: %w", ErrStorageUnavailable, err)
	}

	notebook, err := scanNotebook(tx.QueryRowContext(ctx, selectNotebookColumns+` WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("%w: reselect notebook: %w", ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrStorageUnavailable, err)
	}

	return notebook, nil
}

// UpdateNotebook replaces the title and stamps a fresh revision. The id and
// createdAt are immutable. Returns ErrNotFound when the id does not exist.
func (db *DB) UpdateNotebook(ctx context.Context, id string, update data.NotebookUpdate) (*data.Notebook, error) {
	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	revision := db.stampNow()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE notebooks SET title = ?, system_updated_at = ? WHERE id = ?`,
		update.Title, toNanos(revision), id,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: update notebook: %w", ErrStorageUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: rows affected: %w", ErrStorageUnavailable, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: notebook %s", ErrNotFound, id)
	}

	notebook, err := scanNotebook(db.conn.QueryRowContext(ctx, selectNotebookColumns+` WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("%w: reselect notebook: %w", ErrStorageUnavailable, err)
	}

	return notebook, nil
}

// DeleteNotebook removes the row and records a tombstone with the same id
// inside one transaction, so a crash can never leave one without the other.
// Returns the deletion stamp, or ErrNotFound when the id does not exist.
//
// Children (notes, content blocks) are NOT cascaded; removing them is a
// deliberate, separate call.
func (db *DB) DeleteNotebook(ctx context.Context, id string) (time.Time, error) {
	return db.deleteResource(ctx, "notebooks", data.TypeNotebook, id)
}

// NotebooksSince returns notebooks with a revision strictly greater than
// since, or every notebook when since is nil.
func (db *DB) NotebooksSince(ctx context.Context, since *time.Time) ([]data.Notebook, error) {
	query := selectNotebookColumns
	var args []any
	if since != nil {
		query += ` WHERE system_updated_at > ?`
		args = append(args, toNanos(*since))
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query notebooks: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	notebooks := []data.Notebook{}
	for rows.Next() {
		notebook, err := scanNotebook(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan notebook: %w", ErrStorageUnavailable, err)
		}
		notebooks = append(notebooks, *notebook)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate notebooks: %w", ErrStorageUnavailable, err)
	}

	return notebooks, nil
}

// deleteResource is the shared delete path for all three entity tables:
// remove the row, upsert the tombstone, commit both or neither.
func (db *DB) deleteResource(ctx context.Context, table, resourceType, id string) (time.Time, error) {
	deletedAt := db.stampNow()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: begin transaction: %w", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: delete from %s: %w", ErrStorageUnavailable, table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: rows affected: %w", ErrStorageUnavailable, err)
	}
	if affected == 0 {
		return time.Time{}, fmt.Errorf("%w: %s %s", ErrNotFound, resourceType, id)
	}

	if err := recordTombstoneTx(ctx, tx, resourceType, id, deletedAt); err != nil {
		return time.Time{}, err
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("%w: commit: %w", ErrStorageUnavailable, err)
	}

	return deletedAt, nil
}

func scanNotebook(row rowScanner) (*data.Notebook, error) {
	var notebook data.Notebook
	var createdAt, updatedAt, revision int64

	if err := row.Scan(&notebook.ID, &notebook.Title, &createdAt, &updatedAt, &revision); err != nil {
		return nil, err
	}

	notebook.CreatedAt = fromNanos(createdAt)
	notebook.UpdatedAt = fromNanos(updatedAt)
	notebook.Revision = fromNanos(revision)

	return &notebook, nil
}
