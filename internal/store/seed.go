package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pragma-notes/pragma/internal/data"
)

// SeedIfEmpty populates a brand-new database with one example notebook, a
// welcome note and a text block, so a first client sync has something to
// show. A database with any notebook at all is left untouched.
func (db *DB) SeedIfEmpty(ctx context.Context) error {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notebooks`).Scan(&count); err != nil {
		return fmt.Errorf("%w: count notebooks: %w", ErrStorageUnavailable, err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()

	notebook, err := db.CreateNotebook(ctx, data.NewNotebook{
		Title:     "Example notebook",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("seed notebook: %w", err)
	}

	note, err := db.CreateNote(ctx, data.NewNote{
		Title:      "Welcome",
		Tags:       []string{"getting-started"},
		NotebookID: notebook.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return fmt.Errorf("seed note: %w", err)
	}

	_, err = db.CreateContentBlock(ctx, data.NewContentBlock{
		Content:   data.Content{Text: &data.TextContent{Text: "Welcome to Pragma!"}},
		NoteID:    note.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("seed content block: %w", err)
	}

	return nil
}
