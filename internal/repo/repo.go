package repo

import (
	"context"
	"time"

	"github.com/pragma-notes/pragma/internal/data"
	"github.com/pragma-notes/pragma/internal/store"
)

// Change describes a committed mutation, published to subscribers after the
// transaction lands. Action is one of "created", "updated", "deleted".
type Change struct {
	Action   string    `json:"action"`
	Type     string    `json:"type"`
	ID       string    `json:"id"`
	Revision time.Time `json:"revision"`
}

// ChangeListener receives committed changes. Implementations must not
// block; the executor worker calls them inline.
type ChangeListener interface {
	NotifyChange(change Change)
}

// Repo is the single entry point for all reads and writes. Every operation
// funnels through the executor, so at most one store call is in flight at a
// time.
type Repo struct {
	db       *store.DB
	exec     *executor
	listener ChangeListener
}

// Options tunes the repo. The zero value is usable.
type Options struct {
	// QueueDepth bounds the command queue. Zero means the default.
	QueueDepth int

	// Listener, when set, receives committed changes.
	Listener ChangeListener
}

// New starts the worker goroutine and returns a ready repo. Call Close to
// stop it.
func New(db *store.DB, opts Options) *Repo {
	return &Repo{
		db:       db,
		exec:     newExecutor(opts.QueueDepth),
		listener: opts.Listener,
	}
}

// Close drains queued commands and stops the worker.
func (r *Repo) Close() {
	r.exec.stop()
}

func (r *Repo) notify(action, resourceType, id string, revision time.Time) {
	if r.listener == nil {
		return
	}
	r.listener.NotifyChange(Change{
		Action:   action,
		Type:     resourceType,
		ID:       id,
		Revision: revision,
	})
}

// CreateNotebook persists a new notebook and returns the stored row.
func (r *Repo) CreateNotebook(ctx context.Context, newNotebook data.NewNotebook) (*data.Notebook, error) {
	return submit(ctx, r.exec, func(execCtx context.Context) (*data.Notebook, error) {
		notebook, err := r.db.CreateNotebook(execCtx, newNotebook)
		if err != nil {
			return nil, err
		}
		r.notify("created", data.TypeNotebook, notebook.ID, notebook.Revision)
		return notebook, nil
	})
}

// UpdateNotebook replaces the mutable fields of a notebook.
func (r *Repo) UpdateNotebook(ctx context.Context, id string, update data.NotebookUpdate) (*data.Notebook, error) {
	return submit(ctx, r.exec, func(execCtx context.Context) (*data.Notebook, error) {
		notebook, err := r.db.UpdateNotebook(execCtx, id, update)
		if err != nil {
			return nil, err
		}
		r.notify("updated", data.TypeNotebook, notebook.ID, notebook.Revision)
		return notebook, nil
	})
}

// DeleteNotebook removes a notebook and records its tombstone.
func (r *Repo) DeleteNotebook(ctx context.Context, id string) error {
	_, err := submit(ctx, r.exec, func(execCtx context.Context) (time.Time, error) {
		deletedAt, err := r.db.DeleteNotebook(execCtx, id)
		if err != nil {
			return time.Time{}, err
		}
		r.notify("deleted", data.TypeNotebook, id, deletedAt)
		return deletedAt, nil
	})
	return err
}

// CreateNote persists a new note and returns the stored row.
func (r *Repo) CreateNote(ctx context.Context, newNote data.NewNote) (*data.Note, error) {
	return submit(ctx, r.exec, func(execCtx context.Context) (*data.Note, error) {
		note, err := r.db.CreateNote(execCtx, newNote)
		if err != nil {
			return nil, err
		}
		r.notify("created", data.TypeNote, note.ID, note.Revision)
		return note, nil
	})
}

// UpdateNote replaces the mutable fields of a note.
func (r *Repo) UpdateNote(ctx context.Context, id string, update data.NoteUpdate) (*data.Note, error) {
	return submit(ctx, r.exec, func(execCtx context.Context) (*data.Note, error) {
		note, err := r.db.UpdateNote(execCtx, id, update)
		if err != nil {
			return nil, err
		}
		r.notify("updated", data.TypeNote, note.ID, note.Revision)
		return note, nil
	})
}

// DeleteNote removes a note and records its tombstone.
func (r *Repo) DeleteNote(ctx context.Context, id string) error {
	_, err := submit(ctx, r.exec, func(execCtx context.Context) (time.Time, error) {
		deletedAt, err := r.db.DeleteNote(execCtx, id)
		if err != nil {
			return time.Time{}, err
		}
		r.notify("deleted", data.TypeNote, id, deletedAt)
		return deletedAt, nil
	})
	return err
}

// CreateContentBlock persists a new content block and returns the stored
// row.
func (r *Repo) CreateContentBlock(ctx context.Context, newBlock data.NewContentBlock) (*data.ContentBlock, error) {
	return submit(ctx, r.exec, func(execCtx context.Context) (*data.ContentBlock, error) {
		block, err := r.db.CreateContentBlock(execCtx, newBlock)
		if err != nil {
			return nil, err
		}
		r.notify("created", data.TypeContentBlock, block.ID, block.Revision)
		return block, nil
	})
}

// UpdateContentBlock replaces the content of a block.
func (r *Repo) UpdateContentBlock(ctx context.Context, id string, update data.ContentBlockUpdate) (*data.ContentBlock, error) {
	return submit(ctx, r.exec, func(execCtx context.Context) (*data.ContentBlock, error) {
		block, err := r.db.UpdateContentBlock(execCtx, id, update)
		if err != nil {
			return nil, err
		}
		r.notify("updated", data.TypeContentBlock, block.ID, block.Revision)
		return block, nil
	})
}

// DeleteContentBlock removes a content block and records its tombstone.
func (r *Repo) DeleteContentBlock(ctx context.Context, id string) error {
	_, err := submit(ctx, r.exec, func(execCtx context.Context) (time.Time, error) {
		deletedAt, err := r.db.DeleteContentBlock(execCtx, id)
		if err != nil {
			return time.Time{}, err
		}
		r.notify("deleted", data.TypeContentBlock, id, deletedAt)
		return deletedAt, nil
	})
	return err
}
