package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// openTestStore connects to PDFZ_POSTGRES_DSN and empties the table.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("PDFZ_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Missing PDFZ_POSTGRES_DSN envvar: skipping postgres backed test suite")
	}

	store, err := NewStore(dsn)
	require.NoError(t, err)

	flush := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := store.db.ExecContext(ctx, "TRUNCATE documents")
		require.NoError(t, err)
	}
	flush()
	t.Cleanup(func() {
		flush()
		assert.NoError(t, store.Close())
	})
	return store
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) driven.DocumentStore {
		return openTestStore(t)
	})
}

func TestIsUniqueViolationError(t *testing.T) {
	assert.True(t, isUniqueViolationError(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolationError(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolationError(errors.New("boom")))
}

func TestNewStore_Unreachable(t *testing.T) {
	_, err := NewStore("postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	assert.Error(t, err)
}
