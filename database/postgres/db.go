package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediabed/mediabed"
)

type columnInfo struct {
	name       string
	dataType   string
	isNullable bool
}

var mediaTableSchema = map[string]columnInfo{
	"url":         {"url", "text", false},
	"file_id":     {"file_id", "text", false},
	"folder_id":   {"folder_id", "uuid", true},
	"uploaded_at": {"uploaded_at", "timestamp with time zone", false},
	"file_size":   {"file_size", "bigint", false},
}

var foldersTableSchema = map[string]columnInfo{
	"id":         {"id", "uuid", false},
	"name":       {"name", "text", false},
	"created_at": {"created_at", "timestamp with time zone", false},
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_name = $1
		)
	`
	if err := pool.QueryRow(ctx, query, tableName).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}

func validateTableSchema(ctx context.Context, pool *pgxpool.Pool, tableName string, expectedSchema map[string]columnInfo) error {
	if !mediabed.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, pool, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer rows.Close()

	actualColumns := make(map[string]columnInfo)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actualColumns[name] = columnInfo{
			name:       name,
			dataType:   strings.ToLower(dataType),
			isNullable: nullable == "YES",
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	var problems []string
	for colName, expected := range expectedSchema {
		actual, ok := actualColumns[colName]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing column %s", colName))
			continue
		}
		if actual.dataType != expected.dataType {
			problems = append(problems, fmt.Sprintf("%s: expected %s, got %s", colName, expected.dataType, actual.dataType))
		}
		if actual.isNullable != expected.isNullable {
			problems = append(problems, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", colName, expected.isNullable, actual.isNullable))
		}
	}

	if len(problems) > 0 {
		return errors.New("table " + tableName + " schema validation failed: " + strings.Join(problems, "; "))
	}

	return nil
}

// ValidateSchema checks that the catalog tables exist with the expected
// column layout.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables mediabed.Tables) error {
	if err := validateTableSchema(ctx, pool, tables.Media, mediaTableSchema); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Media, err)
	}
	if err := validateTableSchema(ctx, pool, tables.Folders, foldersTableSchema); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Folders, err)
	}
	return nil
}
