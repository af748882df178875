// Package postgres implements the catalog interface using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediabed/mediabed"
)

type Repo struct {
	pool   *pgxpool.Pool
	tables mediabed.Tables
}

func NewRepo(pool *pgxpool.Pool, tables mediabed.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}
	return &Repo{pool: pool, tables: tables}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) InsertMediaIfAbsent(ctx context.Context, m mediabed.Media) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (url, file_id, folder_id, uploaded_at, file_size)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url) DO NOTHING
	`, r.tables.Media)

	_, err := r.pool.Exec(ctx, query, m.URL, m.FileID, m.FolderID, m.UploadedAt.UTC(), m.FileSize)
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

func (r *Repo) LookupFileID(ctx context.Context, url string) (string, error) {
	query := fmt.Sprintf(`SELECT file_id FROM %s WHERE url = $1`, r.tables.Media)

	var fileID string
	err := r.pool.QueryRow(ctx, query, url).Scan(&fileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	query := fmt.Sprintf(`DELETE FROM %s WHERE url = ANY($1)`, r.tables.Media)

	tag, err := r.pool.Exec(ctx, query, urls)
	if err != nil {
		return 0, fmt.Errorf("delete media: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) ReassignFolder(ctx context.Context, url string, folderID *uuid.UUID) error {
	query := fmt.Sprintf(`UPDATE %s SET folder_id = $1 WHERE url = $2`, r.tables.Media)

	if _, err := r.pool.Exec(ctx, query, folderID, url); err != nil {
		return fmt.Errorf("reassign folder: %w", err)
	}
	return nil
}

func (r *Repo) ListMedia(ctx context.Context) ([]mediabed.Media, error) {
	query := fmt.Sprintf(`
		SELECT url, file_id, folder_id, uploaded_at, file_size
		FROM %s
		ORDER BY uploaded_at DESC
	`, r.tables.Media)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	items := make([]mediabed.Media, 0)
	for rows.Next() {
		var m mediabed.Media
		if err := rows.Scan(&m.URL, &m.FileID, &m.FolderID, &m.UploadedAt, &m.FileSize); err != nil {
			return nil, fmt.Errorf("list media: scan: %w", err)
		}
		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list media: rows: %w", err)
	}
	return items, nil
}

func (r *Repo) CreateFolder(ctx context.Context, name string) (mediabed.Folder, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name)
		VALUES ($1, $2)
		RETURNING id, name, created_at
	`, r.tables.Folders)

	var f mediabed.Folder
	err := r.pool.QueryRow(ctx, query, uuid.New(), name).Scan(&f.ID, &f.Name, &f.CreatedAt)
	if err != nil {
		return mediabed.Folder{}, fmt.Errorf("create folder: %w", err)
	}
	return f, nil
}

func (r *Repo) RenameFolder(ctx context.Context, id uuid.UUID, name string) error {
	query := fmt.Sprintf(`UPDATE %s SET name = $1 WHERE id = $2`, r.tables.Folders)

	tag, err := r.pool.Exec(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rename folder: %w", mediabed.ErrNotFound)
	}
	return nil
}

// DeleteFolder clears folder references before removing the folder row so
// no media row ever points at a deleted folder.
func (r *Repo) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	clearQuery := fmt.Sprintf(`UPDATE %s SET folder_id = NULL WHERE folder_id = $1`, r.tables.Media)

	if _, err := r.pool.Exec(ctx, clearQuery, id); err != nil {
		return fmt.Errorf("delete folder: clear references: %w", err)
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Folders)

	tag, err := r.pool.Exec(ctx, deleteQuery, id)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete folder: %w", mediabed.ErrNotFound)
	}
	return nil
}

func (r *Repo) ListFolders(ctx context.Context) ([]mediabed.Folder, error) {
	query := fmt.Sprintf(`SELECT id, name, created_at FROM %s ORDER BY name`, r.tables.Folders)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	items := make([]mediabed.Folder, 0)
	for rows.Next() {
		var f mediabed.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("list folders: scan: %w", err)
		}
		items = append(items, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list folders: rows: %w", err)
	}
	return items, nil
}
