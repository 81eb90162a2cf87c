package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pragma-notes/pragma/internal/data"
)

// ChangeSet groups the live entities modified past the client's cursor.
type ChangeSet struct {
	Notebooks     []data.Notebook     `json:"notebooks"`
	Notes         []data.Note         `json:"notes"`
	ContentBlocks []data.ContentBlock `json:"contentBlocks"`
}

// SyncResponse is the full delta since a client's last revision. Revision
// is the cursor for the next poll: the newest stamp among everything
// returned, or the current time when nothing changed. Feeding it back is
// always safe because every returned row satisfied `stamp > since` and the
// next poll is strictly greater again.
type SyncResponse struct {
	Revision  time.Time       `json:"revision"`
	Deletions []data.Resource `json:"deletions"`
	Changes   ChangeSet       `json:"changes"`
}

// GetChanges assembles the delta since the given revision, or the full
// dataset when since is nil. The four queries run concurrently and the
// response is all-or-nothing: any failure fails the whole call rather than
// handing the client a partial delta with a cursor that would skip the
// missing rows forever.
func (r *Repo) GetChanges(ctx context.Context, since *time.Time) (*SyncResponse, error) {
	var (
		notebooks  []data.Notebook
		notes      []data.Note
		blocks     []data.ContentBlock
		tombstones []data.Tombstone
	)

	var wg sync.WaitGroup
	errs := make([]error, 4)

	wg.Add(4)
	go func() {
		defer wg.Done()
		notebooks, errs[0] = submit(ctx, r.exec, func(execCtx context.Context) ([]data.Notebook, error) {
			return r.db.NotebooksSince(execCtx, since)
		})
	}()
	go func() {
		defer wg.Done()
		notes, errs[1] = submit(ctx, r.exec, func(execCtx context.Context) ([]data.Note, error) {
			return r.db.NotesSince(execCtx, since)
		})
	}()
	go func() {
		defer wg.Done()
		blocks, errs[2] = submit(ctx, r.exec, func(execCtx context.Context) ([]data.ContentBlock, error) {
			return r.db.ContentBlocksSince(execCtx, since)
		})
	}()
	go func() {
		defer wg.Done()
		tombstones, errs[3] = submit(ctx, r.exec, func(execCtx context.Context) ([]data.Tombstone, error) {
			return r.db.TombstonesSince(execCtx, since)
		})
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("assemble changes: %w", err)
		}
	}

	revision := latest(time.Time{}, notebooks)
	revision = latest(revision, notes)
	revision = latest(revision, blocks)
	revision = latest(revision, tombstones)
	if revision.IsZero() {
		revision = time.Now().UTC()
	}

	deletions := make([]data.Resource, 0, len(tombstones))
	for _, tombstone := range tombstones {
		deletions = append(deletions, data.Resource{ID: tombstone.ID, Type: tombstone.Type})
	}

	return &SyncResponse{
		Revision:  revision,
		Deletions: deletions,
		Changes: ChangeSet{
			Notebooks:     notebooks,
			Notes:         notes,
			ContentBlocks: blocks,
		},
	}, nil
}
