// Package sqlite implements the catalog interface using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediabed/mediabed"
)

type Repo struct {
	db     *sql.DB
	tables mediabed.Tables
}

func NewRepo(db *sql.DB, tables mediabed.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}
	return &Repo{db: db, tables: tables}, nil
}

func (r *Repo) InsertMediaIfAbsent(ctx context.Context, m mediabed.Media) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (url, file_id, folder_id, uploaded_at, file_size)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`, r.tables.Media)

	_, err := r.db.ExecContext(ctx, query,
		m.URL, m.FileID, folderIDValue(m.FolderID),
		m.UploadedAt.UTC().Format(time.RFC3339Nano), m.FileSize,
	)
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

func (r *Repo) LookupFileID(ctx context.Context, url string) (string, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT file_id FROM %s WHERE url = ?`, r.tables.Media)

	var fileID string
	err := r.db.QueryRowContext(ctx, query, url).Scan(&fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", mediabed.ErrNotFound
		}
		return "", fmt.Errorf("lookup file id: %w", err)
	}
	return fileID, nil
}

func (r *Repo) DeleteMedia(ctx context.Context, urls []string) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(urls)), ",")
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE url IN (%s)`, r.tables.Media, placeholders)

	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete media: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete media: rows affected: %w", err)
	}
	return n, nil
}

func (r *Repo) ReassignFolder(ctx context.Context, url string, folderID *uuid.UUID) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET folder_id = ? WHERE url = ?`, r.tables.Media)

	if _, err := r.db.ExecContext(ctx, query, folderIDValue(folderID), url); err != nil {
		return fmt.Errorf("reassign folder: %w", err)
	}
	return nil
}

func (r *Repo) ListMedia(ctx context.Context) ([]mediabed.Media, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT url, file_id, folder_id, uploaded_at, file_size
		FROM %s
		ORDER BY uploaded_at DESC`, r.tables.Media)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]mediabed.Media, 0)
	for rows.Next() {
		var m mediabed.Media
		var folderID sql.NullString
		var uploadedAt string

		if err := rows.Scan(&m.URL, &m.FileID, &folderID, &uploadedAt, &m.FileSize); err != nil {
			return nil, fmt.Errorf("list media: scan: %w", err)
		}

		if folderID.Valid {
			id, parseErr := uuid.Parse(folderID.String)
			if parseErr != nil {
				return nil, fmt.Errorf("list media: parse folder id: %w", parseErr)
			}
			m.FolderID = &id
		}

		m.UploadedAt, err = time.Parse(time.RFC3339Nano, uploadedAt)
		if err != nil {
			return nil, fmt.Errorf("list media: parse uploaded_at: %w", err)
		}

		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list media: rows: %w", err)
	}
	return items, nil
}

func (r *Repo) CreateFolder(ctx context.Context, name string) (mediabed.Folder, error) {
	f := mediabed.Folder{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, name, created_at) VALUES (?, ?, ?)`, r.tables.Folders)

	_, err := r.db.ExecContext(ctx, query,
		f.ID.String(), f.Name, f.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return mediabed.Folder{}, fmt.Errorf("create folder: %w", err)
	}
	return f, nil
}

func (r *Repo) RenameFolder(ctx context.Context, id uuid.UUID, name string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET name = ? WHERE id = ?`, r.tables.Folders)

	result, err := r.db.ExecContext(ctx, query, name, id.String())
	if err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename folder: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("rename folder: %w", mediabed.ErrNotFound)
	}
	return nil
}

// DeleteFolder clears folder references before removing the folder row so
// no media row ever points at a deleted folder.
func (r *Repo) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	clearQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET folder_id = NULL WHERE folder_id = ?`, r.tables.Media)

	if _, err := r.db.ExecContext(ctx, clearQuery, id.String()); err != nil {
		return fmt.Errorf("delete folder: clear references: %w", err)
	}

	deleteQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE id = ?`, r.tables.Folders)

	result, err := r.db.ExecContext(ctx, deleteQuery, id.String())
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete folder: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete folder: %w", mediabed.ErrNotFound)
	}
	return nil
}

func (r *Repo) ListFolders(ctx context.Context) ([]mediabed.Folder, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, name, created_at FROM %s ORDER BY name`, r.tables.Folders)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]mediabed.Folder, 0)
	for rows.Next() {
		var f mediabed.Folder
		var idStr, createdAt string

		if err := rows.Scan(&idStr, &f.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("list folders: scan: %w", err)
		}

		f.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("list folders: parse id: %w", err)
		}

		f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("list folders: parse created_at: %w", err)
		}

		items = append(items, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list folders: rows: %w", err)
	}
	return items, nil
}

func folderIDValue(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
