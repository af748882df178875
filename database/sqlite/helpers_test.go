package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mediabed/mediabed"
	"github.com/mediabed/mediabed/database/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a repo on an in-memory database with unique table
// names for test isolation.
func setupTestRepo(t *testing.T) (*sqlite.Repo, func()) {
	t.Helper()

	ctx := context.Background()

	suffix := getRandomString(t)
	tables := mediabed.Tables{
		Media:   fmt.Sprintf("media_%s", suffix),
		Folders: fmt.Sprintf("folders_%s", suffix),
	}

	db, err := sql.Open("sqlite", ":memory:")
	assert.NoError(t, err, "failed to open")

	err = sqlite.Migrate(ctx, db, tables)
	assert.NoError(t, err, "failed to migrate")

	err = sqlite.ValidateSchema(ctx, db, tables)
	assert.NoError(t, err, "failed to validate schema")

	repo, err := sqlite.NewRepo(db, tables)
	assert.NoError(t, err, "failed to create repo")

	cleanup := func() {
		_ = db.Close()
	}

	return repo, cleanup
}
