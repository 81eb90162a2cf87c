package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pragma-notes/pragma/internal/data"
)

// recordTombstoneTx upserts the deletion marker for (type, id) inside the
// caller's transaction. Deleting the same identity twice keeps one row and
// advances its stamp.
func recordTombstoneTx(ctx context.Context, tx *sql.Tx, resourceType, id string, deletedAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO deletions (type, resource_id, system_updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(type, resource_id) DO UPDATE SET
		 	system_updated_at = excluded.system_updated_at`,
		resourceType, id, toNanos(deletedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: record tombstone: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// ImportTombstone upserts a deletion marker with its original stamp,
// used when replaying an exported dataset.
func (db *DB) ImportTombstone(ctx context.Context, tombstone data.Tombstone) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if err := recordTombstoneTx(ctx, tx, tombstone.Type, tombstone.ID, tombstone.DeletedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// TombstonesSince returns deletion markers with a stamp strictly greater
// than since, or every marker when since is nil.
func (db *DB) TombstonesSince(ctx context.Context, since *time.Time) ([]data.Tombstone, error) {
	query := `SELECT type, resource_id, system_updated_at FROM deletions`
	var args []any
	if since != nil {
		query += ` WHERE system_updated_at > ?`
		args = append(args, toNanos(*since))
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query deletions: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	tombstones := []data.Tombstone{}
	for rows.Next() {
		var tombstone data.Tombstone
		var deletedAt int64
		if err := rows.Scan(&tombstone.Type, &tombstone.ID, &deletedAt); err != nil {
			return nil, fmt.Errorf("%w: scan deletion: %w", ErrStorageUnavailable, err)
		}
		tombstone.DeletedAt = fromNanos(deletedAt)
		tombstones = append(tombstones, tombstone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate deletions: %w", ErrStorageUnavailable, err)
	}

	return tombstones, nil
}
