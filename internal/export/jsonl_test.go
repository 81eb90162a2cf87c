package export

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pragma-notes/pragma/internal/data"
	"github.com/pragma-notes/pragma/internal/store"
)

func testStore(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "pragma.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}
	return db
}

func populate(t *testing.T, db *store.DB) (*data.Notebook, *data.Note, *data.ContentBlock) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	notebook, err := db.CreateNotebook(ctx, data.NewNotebook{Title: "Work", CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("Failed to create notebook: %v", err)
	}
	note, err := db.CreateNote(ctx, data.NewNote{
		Title: "Plan", Tags: []string{"q3"}, NotebookID: notebook.ID, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Failed to create note: %v", err)
	}
	block, err := db.CreateContentBlock(ctx, data.NewContentBlock{
		Content: data.Content{Text: &data.TextContent{Text: "ship it"}},
		NoteID:  note.ID, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Failed to create content block: %v", err)
	}
	return notebook, note, block
}

func TestExportImportRoundTrip(t *testing.T) {
	src := testStore(t)
	ctx := context.Background()

	notebook, note, block := populate(t, src)

	// One deletion so the stream carries a tombstone too.
	doomed, err := src.CreateNotebook(ctx, data.NewNotebook{
		Title: "Doomed", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Failed to create notebook: %v", err)
	}
	if _, err := src.DeleteNotebook(ctx, doomed.ID); err != nil {
		t.Fatalf("Failed to delete notebook: %v", err)
	}

	var buf bytes.Buffer
	exported, err := Export(ctx, src, &buf)
	if err != nil {
		t.Fatalf("Failed to export: %v", err)
	}
	if exported.Notebooks != 1 || exported.Notes != 1 || exported.ContentBlocks != 1 || exported.Deletions != 1 {
		t.Fatalf("Export counts = %+v", exported)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != exported.Total() {
		t.Errorf("Expected %d lines, got %d", exported.Total(), lines)
	}

	dst := testStore(t)
	imported, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Failed to import: %v", err)
	}
	if imported.Total() != exported.Total() {
		t.Fatalf("Imported %d records, exported %d", imported.Total(), exported.Total())
	}

	notebooks, err := dst.NotebooksSince(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to list notebooks: %v", err)
	}
	if len(notebooks) != 1 || notebooks[0].ID != notebook.ID || notebooks[0].Title != "Work" {
		t.Errorf("Notebooks = %+v", notebooks)
	}

	notes, err := dst.NotesSince(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to list notes: %v", err)
	}
	if len(notes) != 1 || notes[0].ID != note.ID || len(notes[0].Tags) != 1 {
		t.Errorf("Notes = %+v", notes)
	}

	blocks, err := dst.ContentBlocksSince(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to list content blocks: %v", err)
	}
	if len(blocks) != 1 || blocks[0].ID != block.ID || blocks[0].Content.Text == nil {
		t.Errorf("Content blocks = %+v", blocks)
	}

	tombstones, err := dst.TombstonesSince(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to list tombstones: %v", err)
	}
	if len(tombstones) != 1 || tombstones[0].ID != doomed.ID {
		t.Errorf("Tombstones = %+v", tombstones)
	}
}

func TestExportFileAtomicRename(t *testing.T) {
	db := testStore(t)
	populate(t, db)

	path := filepath.Join(t.TempDir(), "backup.jsonl")
	result, err := ExportFile(context.Background(), db, path)
	if err != nil {
		t.Fatalf("Failed to export file: %v", err)
	}
	if result.Total() != 3 {
		t.Errorf("Exported %d records, want 3", result.Total())
	}

	imported, err := ImportFile(context.Background(), testStore(t), path)
	if err != nil {
		t.Fatalf("Failed to import file: %v", err)
	}
	if imported.Total() != 3 {
		t.Errorf("Imported %d records, want 3", imported.Total())
	}
}

func TestImportRejectsUnknownKind(t *testing.T) {
	db := testStore(t)

	stream := `{"kind":"sticker","notebook":null}` + "\n"
	if _, err := Import(context.Background(), db, strings.NewReader(stream)); err == nil {
		t.Error("Expected error for unknown record kind")
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	db := testStore(t)

	if _, err := Import(context.Background(), db, strings.NewReader("not json\n")); err == nil {
		t.Error("Expected error for malformed stream")
	}
}
