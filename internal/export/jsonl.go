// Package export moves whole datasets in and out of the store as JSONL,
// one record per line. Useful for backups and for moving a database between
// hosts without copying the SQLite file.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pragma-notes/pragma/internal/data"
	"github.com/pragma-notes/pragma/internal/store"
)

// Record kinds, one per line of the JSONL stream.
const (
	KindNotebook     = "notebook"
	KindNote         = "note"
	KindContentBlock = "content_block"
	KindDeletion     = "deletion"
)

// Record is one line of the export stream. Exactly one payload field is set,
// matching Kind.
type Record struct {
	Kind         string             `json:"kind"`
	Notebook     *data.Notebook     `json:"notebook,omitempty"`
	Note         *data.Note         `json:"note,omitempty"`
	ContentBlock *data.ContentBlock `json:"contentBlock,omitempty"`
	Deletion     *data.Tombstone    `json:"deletion,omitempty"`
}

// Result counts what an export or import touched.
type Result struct {
	Notebooks     int
	Notes         int
	ContentBlocks int
	Deletions     int
}

// Total returns the record count across all kinds.
func (r Result) Total() int {
	return r.Notebooks + r.Notes + r.ContentBlocks + r.Deletions
}

// Export writes every row of the store to w as JSONL. Notebooks come first,
// then notes, then content blocks, then deletions, so an import can replay
// the stream in order.
func Export(ctx context.Context, db *store.DB, w io.Writer) (*Result, error) {
	result := &Result{}
	out := bufio.NewWriter(w)
	encoder := json.NewEncoder(out)

	notebooks, err := db.NotebooksSince(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read notebooks: %w", err)
	}
	for i := range notebooks {
		if err := encoder.Encode(Record{Kind: KindNotebook, Notebook: &notebooks[i]}); err != nil {
			return nil, fmt.Errorf("failed to write notebook: %w", err)
		}
		result.Notebooks++
	}

	notes, err := db.NotesSince(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	for i := range notes {
		if err := encoder.Encode(Record{Kind: KindNote, Note: &notes[i]}); err != nil {
			return nil, fmt.Errorf("failed to write note: %w", err)
		}
		result.Notes++
	}

	blocks, err := db.ContentBlocksSince(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read content blocks: %w", err)
	}
	for i := range blocks {
		if err := encoder.Encode(Record{Kind: KindContentBlock, ContentBlock: &blocks[i]}); err != nil {
			return nil, fmt.Errorf("failed to write content block: %w", err)
		}
		result.ContentBlocks++
	}

	tombstones, err := db.TombstonesSince(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read deletions: %w", err)
	}
	for i := range tombstones {
		if err := encoder.Encode(Record{Kind: KindDeletion, Deletion: &tombstones[i]}); err != nil {
			return nil, fmt.Errorf("failed to write deletion: %w", err)
		}
		result.Deletions++
	}

	if err := out.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush output: %w", err)
	}

	return result, nil
}

// ExportFile exports to a file, writing a temp file first and renaming it
// into place so a crash never leaves a half-written export.
func ExportFile(ctx context.Context, db *store.DB, path string) (*Result, error) {
	tmpPath := path + ".tmp"
	// #nosec G304 - controlled path from CLI
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}

	result, err := Export(ctx, db, file)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return nil, err
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to rename export file: %w", err)
	}

	return result, nil
}

// Import replays a JSONL stream into the store, preserving ids and client
// timestamps. Revisions are restamped on insert; deletion records become
// fresh tombstones.
func Import(ctx context.Context, db *store.DB, r io.Reader) (*Result, error) {
	result := &Result{}
	decoder := json.NewDecoder(bufio.NewReader(r))
	line := 0

	for {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid JSON at record %d: %w", line+1, err)
		}
		line++

		switch record.Kind {
		case KindNotebook:
			if record.Notebook == nil {
				return nil, fmt.Errorf("record %d: notebook payload missing", line)
			}
			_, err := db.CreateNotebook(ctx, data.NewNotebook{
				ID:        record.Notebook.ID,
				Title:     record.Notebook.Title,
				CreatedAt: record.Notebook.CreatedAt,
				UpdatedAt: record.Notebook.UpdatedAt,
			})
			if err != nil {
				return nil, fmt.Errorf("record %d: import notebook %s: %w", line, record.Notebook.ID, err)
			}
			result.Notebooks++

		case KindNote:
			if record.Note == nil {
				return nil, fmt.Errorf("record %d: note payload missing", line)
			}
			_, err := db.CreateNote(ctx, data.NewNote{
				ID:         record.Note.ID,
				Title:      record.Note.Title,
				Tags:       record.Note.Tags,
				NotebookID: record.Note.NotebookID,
				CreatedAt:  record.Note.CreatedAt,
				UpdatedAt:  record.Note.UpdatedAt,
			})
			if err != nil {
				return nil, fmt.Errorf("record %d: import note %s: %w", line, record.Note.ID, err)
			}
			result.Notes++

		case KindContentBlock:
			if record.ContentBlock == nil {
				return nil, fmt.Errorf("record %d: content block payload missing", line)
			}
			_, err := db.CreateContentBlock(ctx, data.NewContentBlock{
				ID:        record.ContentBlock.ID,
				Content:   record.ContentBlock.Content,
				NoteID:    record.ContentBlock.NoteID,
				CreatedAt: record.ContentBlock.CreatedAt,
				UpdatedAt: record.ContentBlock.UpdatedAt,
			})
			if err != nil {
				return nil, fmt.Errorf("record %d: import content block %s: %w", line, record.ContentBlock.ID, err)
			}
			result.ContentBlocks++

		case KindDeletion:
			if record.Deletion == nil {
				return nil, fmt.Errorf("record %d: deletion payload missing", line)
			}
			if err := db.ImportTombstone(ctx, *record.Deletion); err != nil {
				return nil, fmt.Errorf("record %d: import deletion %s/%s: %w",
					line, record.Deletion.Type, record.Deletion.ID, err)
			}
			result.Deletions++

		default:
			return nil, fmt.Errorf("record %d: unknown kind %q", line, record.Kind)
		}
	}

	return result, nil
}

// ImportFile imports from a JSONL file on disk.
func ImportFile(ctx context.Context, db *store.DB, path string) (*Result, error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	return Import(ctx, db, file)
}
