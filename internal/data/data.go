// Package data defines the resources exchanged by the sync protocol:
// notebooks, notes, content blocks, and the deletion markers that let a
// client learn about removed rows. All types serialize to camelCase JSON.
package data

import (
	"fmt"
	"time"
)

// Resource type tags carried in tombstones and deletion lists.
const (
	TypeNotebook     = "Notebook"
	TypeNote         = "Note"
	TypeContentBlock = "ContentBlock"
)

// Notebook is the top of the containment hierarchy.
type Notebook struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Revision  time.Time `json:"revision"`
}

// RevisionTime implements repo.Revisioned.
func (n Notebook) RevisionTime() time.Time { return n.Revision }

// NewNotebook is the creation payload. CreatedAt/UpdatedAt come from the
// client and are trusted; the server stamps the revision itself.
type NewNotebook struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the creation payload before it reaches storage.
func (n *NewNotebook) Validate() error {
	if n.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// NotebookUpdate replaces the mutable fields of a notebook.
//
// Revision is the client's last-seen revision. It is parsed for forward
// compatibility but not checked against the stored row; updates are
// last-write-wins.
type NotebookUpdate struct {
	Title    string     `json:"title"`
	Revision *time.Time `json:"revision,omitempty"`
}

// Validate checks the update payload.
func (u *NotebookUpdate) Validate() error {
	if u.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// Note belongs to exactly one notebook.
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags"`
	NotebookID string    `json:"notebookId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Revision   time.Time `json:"revision"`
}

// RevisionTime implements repo.Revisioned.
func (n Note) RevisionTime() time.Time { return n.Revision }

// NewNote is the creation payload for a note.
type NewNote struct {
	ID         string    `json:"id,omitempty"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags"`
	NotebookID string    `json:"notebookId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Validate checks the creation payload.
func (n *NewNote) Validate() error {
	if n.Title == "" {
		return fmt.Errorf("title is required")
	}
	if n.NotebookID == "" {
		return fmt.Errorf("notebookId is required")
	}
	return nil
}

// NoteUpdate replaces the mutable fields of a note.
type NoteUpdate struct {
	Title     string     `json:"title"`
	Tags      []string   `json:"tags"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Revision  *time.Time `json:"revision,omitempty"`
}

// Validate checks the update payload.
func (u *NoteUpdate) Validate() error {
	if u.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// ContentBlock belongs to exactly one note.
type ContentBlock struct {
	ID        string    `json:"id"`
	Content   Content   `json:"content"`
	NoteID    string    `json:"noteId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Revision  time.Time `json:"revision"`
}

// RevisionTime implements repo.Revisioned.
func (b ContentBlock) RevisionTime() time.Time { return b.Revision }

// NewContentBlock is the creation payload for a content block.
type NewContentBlock struct {
	ID        string    `json:"id,omitempty"`
	Content   Content   `json:"content"`
	NoteID    string    `json:"noteId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the creation payload.
func (n *NewContentBlock) Validate() error {
	if n.NoteID == "" {
		return fmt.Errorf("noteId is required")
	}
	return n.Content.Validate()
}

// ContentBlockUpdate replaces the content of a block.
type ContentBlockUpdate struct {
	Content   Content    `json:"content"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Revision  *time.Time `json:"revision,omitempty"`
}

// Validate checks the update payload.
func (u *ContentBlockUpdate) Validate() error {
	return u.Content.Validate()
}

// Tombstone is a durable deletion marker. It outlives the row it describes
// and is identified by (Type, ID); deleting a re-created id refreshes the
// timestamp instead of adding a second marker.
type Tombstone struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	DeletedAt time.Time `json:"deletedAt"`
}

// RevisionTime implements repo.Revisioned. A tombstone's revision is the
// instant of deletion.
func (t Tombstone) RevisionTime() time.Time { return t.DeletedAt }

// Resource identifies a deleted entity in a sync response, deliberately
// thinner than the live entity shapes.
type Resource struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}
