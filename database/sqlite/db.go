package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mediabed/mediabed"
)

func tableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var name string
	query := `SELECT name FROM sqlite_master WHERE type='table' AND name=?`
	err := db.QueryRowContext(ctx, query, tableName).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return true, nil
}

type columnInfo struct {
	name       string
	dataType   string
	isNullable bool
}

var mediaTableSchema = map[string]columnInfo{
	"url":         {"url", "text", false},
	"file_id":     {"file_id", "text", false},
	"folder_id":   {"folder_id", "text", true},
	"uploaded_at": {"uploaded_at", "text", false},
	"file_size":   {"file_size", "integer", false},
}

var foldersTableSchema = map[string]columnInfo{
	"id":         {"id", "text", false},
	"name":       {"name", "text", false},
	"created_at": {"created_at", "text", false},
}

func validateTableSchema(ctx context.Context, db *sql.DB, tableName string, expectedSchema map[string]columnInfo) error {
	if !mediabed.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, db, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	query := fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(tableName))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actualColumns := make(map[string]columnInfo)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var dfltValue sql.NullString
		var pk int

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actualColumns[name] = columnInfo{
			name:       name,
			dataType:   strings.ToLower(dataType),
			isNullable: notNull == 0,
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	for colName, expected := range expectedSchema {
		actual, ok := actualColumns[colName]
		if !ok {
			return fmt.Errorf("validate table schema: table %s missing column %s", tableName, colName)
		}
		if actual.dataType != expected.dataType {
			return fmt.Errorf("validate table schema: table %s column %s: expected %s, got %s",
				tableName, colName, expected.dataType, actual.dataType)
		}
	}

	return nil
}

// ValidateSchema checks that the catalog tables exist with the expected
// column layout.
func ValidateSchema(ctx context.Context, db *sql.DB, tables mediabed.Tables) error {
	if err := validateTableSchema(ctx, db, tables.Media, mediaTableSchema); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Media, err)
	}
	if err := validateTableSchema(ctx, db, tables.Folders, foldersTableSchema); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Folders, err)
	}
	return nil
}
