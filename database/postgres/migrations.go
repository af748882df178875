package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediabed/mediabed"
)

// No FK between media and folders: folder references are advisory and
// cleared explicitly when a folder is removed.
func createMediaTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexFolder := pgx.Identifier{fmt.Sprintf("idx_%s_folder_id", tableName)}.Sanitize()
	indexUploaded := pgx.Identifier{fmt.Sprintf("idx_%s_uploaded_at", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			url TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			folder_id UUID,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			file_size BIGINT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (folder_id)
		WHERE (folder_id IS NOT NULL);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (uploaded_at);
	`,
		quotedTable,
		indexFolder, quotedTable,
		indexUploaded, quotedTable,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create media table: %w", err)
	}
	return nil
}

func createFoldersTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, quotedTable)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create folders table: %w", err)
	}
	return nil
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables mediabed.Tables) error {
	if err := createFoldersTable(ctx, pool, tables.Folders); err != nil {
		return fmt.Errorf("migrate %s: %w", tables.Folders, err)
	}
	if err := createMediaTable(ctx, pool, tables.Media); err != nil {
		return fmt.Errorf("migrate %s: %w", tables.Media, err)
	}
	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables mediabed.Tables) error {
	for _, tableName := range []string{tables.Media, tables.Folders} {
		sql := fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{tableName}.Sanitize())
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("drop %s: %w", tableName, err)
		}
	}
	return nil
}
