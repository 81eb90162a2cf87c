package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pragma-notes/pragma/internal/data"
)

const selectContentBlockColumns = `SELECT id, type, content, note_id, created_at, updated_at, system_updated_at FROM content_blocks`

// CreateContentBlock inserts a content block and returns the canonical
// stored row. The content union is persisted as a tag column plus the JSON
// payload of the active arm.
func (db *DB) CreateContentBlock(ctx context.Context, newBlock data.NewContentBlock) (*data.ContentBlock, error) {
	if err := newBlock.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	id := newBlock.ID
	if id == "" {
		id = data.NewID()
	}
	revision := db.stampNow()

	kind, payload, err := data.EncodeContent(newBlock.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: encode content: %w", ErrValidation, err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %w", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO content_blocks (id, type, content, note_id, created_at, updated_at, system_updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, kind, string(payload), newBlock.NoteID,
		toNanos(newBlock.CreatedAt), toNanos(newBlock.UpdatedAt), toNanos(revision),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert content block: %w", ErrStorageUnavailable, err)
	}

	block, err := scanContentBlock(tx.QueryRowContext(ctx, selectContentBlockColumns+` WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("%w: reselect content block: %w", ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrStorageUnavailable, err)
	}

	return block, nil
}

// UpdateContentBlock replaces the content and updatedAt, and stamps a fresh
// revision. Returns ErrNotFound when the id does not exist.
func (db *DB) UpdateContentBlock(ctx context.Context, id string, update data.ContentBlockUpdate) (*data.ContentBlock, error) {
	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	revision := db.stampNow()

	kind, payload, err := data.EncodeContent(update.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: encode content: %w", ErrValidation, err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE content_blocks SET type = ?, content = ?, updated_at = ?, system_updated_at = ? WHERE id = ?`,
		kind, string(payload), toNanos(update.UpdatedAt), toNanos(revision), id,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: update content block: %w", ErrStorageUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: rows affected: %w", ErrStorageUnavailable, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: content block %s", ErrNotFound, id)
	}

	block, err := scanContentBlock(db.conn.QueryRowContext(ctx, selectContentBlockColumns+` WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("%w: reselect content block: %w", ErrStorageUnavailable, err)
	}

	return block, nil
}

// DeleteContentBlock removes the row and records a tombstone inside one
// transaction.
func (db *DB) DeleteContentBlock(ctx context.Context, id string) (time.Time, error) {
	return db.deleteResource(ctx, "content_blocks", data.TypeContentBlock, id)
}

// ContentBlocksSince returns content blocks with a revision strictly greater
// than since, or every block when since is nil.
func (db *DB) ContentBlocksSince(ctx context.Context, since *time.Time) ([]data.ContentBlock, error) {
	query := selectContentBlockColumns
	var args []any
	if since != nil {
		query += ` WHERE system_updated_at > ?`
		args = append(args, toNanos(*since))
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query content blocks: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	blocks := []data.ContentBlock{}
	for rows.Next() {
		block, err := scanContentBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan content block: %w", ErrStorageUnavailable, err)
		}
		blocks = append(blocks, *block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate content blocks: %w", ErrStorageUnavailable, err)
	}

	return blocks, nil
}

func scanContentBlock(row rowScanner) (*data.ContentBlock, error) {
	var block data.ContentBlock
	var kind, payload string
	var createdAt, updatedAt, revision int64

	if err := row.Scan(&block.ID, &kind, &payload, &block.NoteID,
		&createdAt, &updatedAt, &revision); err != nil {
		return nil, err
	}

	content, err := data.DecodeContent(kind, []byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	block.Content = content

	block.CreatedAt = fromNanos(createdAt)
	block.UpdatedAt = fromNanos(updatedAt)
	block.Revision = fromNanos(revision)

	return &block, nil
}
