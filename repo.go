package mediabed

import (
	"context"

	"github.com/google/uuid"
)

// Catalog is the durable relational store of Media and Folder rows, the
// source of truth mapping stable URLs to remote blob handles.
//
// All methods accept a context for cancellation and timeout control.
// Store faults propagate as-is and are surfaced as 500-class responses by
// callers; retry belongs to the network-facing resolver, not here.
type Catalog interface {
	// InsertMediaIfAbsent inserts a media row. If a row with the same URL
	// already exists, the existing row is left untouched and no error is
	// returned (idempotent ingestion, first writer wins).
	InsertMediaIfAbsent(ctx context.Context, m Media) error

	// LookupFileID returns the blob handle for a stable URL.
	// Returns ErrNotFound when no row matches.
	LookupFileID(ctx context.Context, url string) (string, error)

	// DeleteMedia removes the rows matching the given URLs and reports how
	// many rows were actually removed. URLs without a row are ignored.
	DeleteMedia(ctx context.Context, urls []string) (int64, error)

	// ReassignFolder updates the folder reference of a single media row.
	// A nil folderID clears the assignment.
	ReassignFolder(ctx context.Context, url string, folderID *uuid.UUID) error

	// ListMedia returns all media rows, most recently uploaded first.
	ListMedia(ctx context.Context) ([]Media, error)

	// CreateFolder inserts a folder with a fresh surrogate ID.
	CreateFolder(ctx context.Context, name string) (Folder, error)

	// RenameFolder updates a folder's display name.
	// Returns ErrNotFound when the folder does not exist.
	RenameFolder(ctx context.Context, id uuid.UUID, name string) error

	// DeleteFolder removes a folder. It first clears folder_id on every
	// media row referencing the folder, then deletes the folder row, so no
	// dangling reference is ever observable.
	// Returns ErrNotFound when the folder does not exist.
	DeleteFolder(ctx context.Context, id uuid.UUID) error

	// ListFolders returns all folders ordered by name.
	ListFolders(ctx context.Context) ([]Folder, error)
}
