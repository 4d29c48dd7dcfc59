package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) driven.DocumentStore {
		return setupTestStore(t)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	first := storetest.NewDocument("bolt-1", 3)
	second := storetest.NewDocument("bolt-2", 3)

	store, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), store.Path())
	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, second))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	docs, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	storetest.AssertSameDocument(t, first, &docs[0])
	storetest.AssertSameDocument(t, second, &docs[1])
}

func TestStore_FailedTransactionLeavesNoTrace(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, storetest.NewDocument("kept", 2)))

	// Remove the order bucket so the next insert cannot commit.
	require.NoError(t, store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketOrder)
	}))

	err := store.Insert(ctx, storetest.NewDocument("lost", 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreWrite))

	exists, err := store.ExistsByHash(ctx, storetest.NewDocument("lost", 2).ContentHash)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSeqKey_Ordering(t *testing.T) {
	assert.Less(t, string(seqKey(9)), string(seqKey(10)))
	assert.Less(t, string(seqKey(255)), string(seqKey(256)))
}
