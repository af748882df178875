package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mediabed/mediabed"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

// getTableMigrations returns all table migrations for the catalog
func getTableMigrations(tables mediabed.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Folders,
			Up:        createFoldersTable(tables.Folders),
			Down:      dropTable(tables.Folders),
		},
		{
			TableName: tables.Media,
			Up:        createMediaTable(tables.Media),
			Down:      dropTable(tables.Media),
		},
	}
}

func Migrate(ctx context.Context, db *sql.DB, tables mediabed.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}
	return nil
}

func DropTables(ctx context.Context, db *sql.DB, tables mediabed.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}
	return nil
}

func createMediaTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexFolder := quoteIdentifier(fmt.Sprintf("idx_%s_folder_id", tableName))
		indexUploaded := quoteIdentifier(fmt.Sprintf("idx_%s_uploaded_at", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				url TEXT NOT NULL PRIMARY KEY,
				file_id TEXT NOT NULL,
				folder_id TEXT,
				uploaded_at TEXT NOT NULL,
				file_size INTEGER NOT NULL
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (folder_id)
		`, indexFolder, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index folder_id: %w", err)
		}

		indexSQL = fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (uploaded_at)
		`, indexUploaded, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index uploaded_at: %w", err)
		}

		return nil
	}
}

func createFoldersTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				name TEXT NOT NULL,
				created_at TEXT NOT NULL
			)
		`, quoteIdentifier(tableName))

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName))
		_, err := db.ExecContext(ctx, dropSQL)
		return err
	}
}
