// Package storetest provides a conformance suite that every
// driven.DocumentStore backend must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// Factory opens a fresh, empty store for a single test. The factory is
// responsible for registering cleanup with t.
type Factory func(t *testing.T) driven.DocumentStore

// Run executes the conformance suite against stores produced by open.
func Run(t *testing.T, open Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, store driven.DocumentStore)
	}{
		{"InsertAndGet", testInsertAndGet},
		{"GetUnknown", testGetUnknown},
		{"ExistsByHash", testExistsByHash},
		{"InsertDuplicateHash", testInsertDuplicateHash},
		{"InsertInvalid", testInsertInvalid},
		{"ListInsertionOrder", testListInsertionOrder},
		{"ListEmpty", testListEmpty},
		{"ReturnedDocumentsAreCopies", testReturnedDocumentsAreCopies},
		{"ConcurrentInsertSameContent", testConcurrentInsertSameContent},
		{"ConcurrentInsertDistinctContent", testConcurrentInsertDistinctContent},
		{"ReadersSeeCommittedDocuments", testReadersSeeCommittedDocuments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

// NewDocument builds a valid document whose content is derived from seed.
func NewDocument(seed string, pageCount int) *domain.Document {
	hash := domain.ContentHash([]byte("%PDF-1.7 " + seed))
	published := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Document{
		ID:              domain.DocumentID(hash),
		ContentHash:     hash,
		SourceURL:       "https://example.com/" + seed + ".pdf",
		Title:           "Document " + seed,
		Authors:         []string{"Grace Hopper", "Alan Turing"},
		PublicationDate: &published,
		PageCount:       pageCount,
		TableOfContents: []domain.OutlineEntry{
			{Title: "Introduction", Page: 1, Depth: 0},
			{Title: "Details", Page: pageCount, Depth: 1},
		},
		Summary:     "Summary of " + seed,
		Model:       "test-model",
		IngestedAt:  time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC),
		StoragePath: "blobs/" + hash + ".pdf",
	}
}

// AssertSameDocument compares documents field by field, treating nil and
// empty slices as equal and comparing instants rather than locations.
func AssertSameDocument(t *testing.T, want, got *domain.Document) {
	t.Helper()
	require.NotNil(t, got)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.ContentHash, got.ContentHash)
	assert.Equal(t, want.SourceURL, got.SourceURL)
	assert.Equal(t, want.Title, got.Title)
	assert.ElementsMatch(t, want.Authors, got.Authors)
	assert.Equal(t, want.Authors, nonNil(got.Authors, want.Authors))
	assert.Equal(t, want.PageCount, got.PageCount)
	assert.Equal(t, len(want.TableOfContents), len(got.TableOfContents))
	for i := range want.TableOfContents {
		if i < len(got.TableOfContents) {
			assert.Equal(t, want.TableOfContents[i], got.TableOfContents[i])
		}
	}
	assert.Equal(t, want.Summary, got.Summary)
	assert.Equal(t, want.Model, got.Model)
	assert.True(t, want.IngestedAt.Equal(got.IngestedAt),
		"ingested_at: want %v, got %v", want.IngestedAt, got.IngestedAt)
	assert.Equal(t, want.StoragePath, got.StoragePath)

	if want.PublicationDate == nil {
		assert.Nil(t, got.PublicationDate)
	} else if assert.NotNil(t, got.PublicationDate) {
		assert.Equal(t, want.PublicationDate.Format("2006-01-02"), got.PublicationDate.Format("2006-01-02"))
	}
}

func nonNil(got, want []string) []string {
	if len(got) == 0 && len(want) == 0 {
		return want
	}
	return got
}

func testInsertAndGet(t *testing.T, store driven.DocumentStore) {
	ctx := context.Background()
	doc := NewDocument("insert-get", 12)

	require.NoError(t, store.Insert(ctx, doc))

	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	AssertSameDocument(t, doc, got)

	t.Run("no publication date", func(t *testing.T) {
		undated := NewDocument("undated", 3)
		undated.PublicationDate = nil
		undated.Authors = nil
		undated.TableOfContents = nil
		require.NoError(t, store.Insert(ctx, undated))

		got, err := store.Get(ctx, undated.ID)
		require.NoError(t, err)
		AssertSameDocument(t, undated, got)
	})
}

func testGetUnknown(t *testing.T, store driven.DocumentStore) {
	_, err := store.Get(context.Background(), "unknown-id")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func testExistsByHash(t *testing.T, store driven.DocumentStore) {
	ctx := context.Background()
	doc := NewDocument("exists", 2)

	exists, err := store.ExistsByHash(ctx, doc.ContentHash)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Insert(ctx, doc))

	exists, err = store.ExistsByHash(ctx, doc.ContentHash)
	require.NoError(t, err)
	assert.True(t, exists)
}

func testInsertDuplicateHash(t *testing.T, store driven.DocumentStore) {
	ctx := context.Background()
	first := NewDocument("dup", 4)
	require.NoError(t, store.Insert(ctx, first))

	second := NewDocument("dup", 4)
	second.Title = "A different title for the same bytes"
	second.SourceURL = "https://mirror.example.com/dup.pdf"

	err := store.Insert(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
	id, ok := domain.ExistingID(err)
	require.True(t, ok)
	assert.Equal(t, first.ID, id)

	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Title, got.Title, "the stored record must not be overwritten")

	docs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func testInsertInvalid(t *testing.T, store driven.DocumentStore) {
	ctx := context.Background()
	doc := NewDocument("invalid", 2)
	doc.TableOfContents = append(doc.TableOfContents, domain.OutlineEntry{Title: "Ghost", Page: 3})

	err := store.Insert(ctx, doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	exists, err := store.ExistsByHash(ctx, doc.ContentHash)
	require.NoError(t, err)
	assert.False(t, exists)
}

func testListInsertionOrder(t *testing.T, store driven.DocumentStore) {
	ctx := context.Background()
	seeds := []string{"zeta", "alpha", "mid", "beta"}
	for _, s := range seeds {
		require.NoError(t, store.Insert(ctx, NewDocument(s, 3)))
	}

	first, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, len(seeds))
	for i, s := range seeds {
		assert.Equal(t, NewDocument(s, 3).ID, first[i].ID)
	}

	second, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func testListEmpty(t *testing.T, store driven.DocumentStore) {
	docs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testReturnedDocumentsAreCopies(t *testing.T, store driven.DocumentStore) {
	ctx := context.Background()
	doc := NewDocument("copies", 3)
	require.NoError(t, store.Insert(ctx, doc))

	doc.Title = "mutated after insert"
	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Document copies", got.Title)

	got.Authors[0] = "mutated"
	got.TableOfContents[0].Title = "mutated"
	again, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", again.Authors[0])
	assert.Equal(t, "Introduction", again.TableOfContents[0].Title)
}

func testConcurrentInsertSameContent(t *testing.T, store driven.DocumentStore) {
	ctx := context.Background()
	const writers = 16

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		conflict int
		other    []error
	)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := NewDocument("race", 5)
			doc.SourceURL = fmt.Sprintf("https://mirror%d.example.com/race.pdf", i)
			<-start
			err := store.Insert(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, domain.ErrDuplicate):
				conflict++
			default:
				other = append(other, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, conflict)

	docs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func testConcurrentInsertDistinctContent(t *testing.T, store driven.DocumentStore) {
	ctx := context.Background()
	const writers = 12

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Insert(ctx, NewDocument(fmt.Sprintf("distinct-%d", i), 2))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	docs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, writers)

	seen := make(map[string]bool)
	for _, d := range docs {
		assert.False(t, seen[d.ID], "duplicate id %s in listing", d.ID)
		seen[d.ID] = true
	}
}

func testReadersSeeCommittedDocuments(t *testing.T, store driven.DocumentStore) {
	ctx := context.Background()
	const docs = 20

	done := make(chan struct{})
	readerErrs := make(chan error, 1)
	go func() {
		defer close(readerErrs)
		last := 0
		for {
			select {
			case <-done:
				return
			default:
			}
			listed, err := store.List(ctx)
			if err != nil {
				readerErrs <- err
				return
			}
			if len(listed) < last {
				readerErrs <- fmt.Errorf("listing shrank from %d to %d", last, len(listed))
				return
			}
			last = len(listed)
			for i := range listed {
				if err := listed[i].Validate(); err != nil {
					readerErrs <- fmt.Errorf("reader saw partial document: %w", err)
					return
				}
			}
		}
	}()

	for i := 0; i < docs; i++ {
		require.NoError(t, store.Insert(ctx, NewDocument(fmt.Sprintf("reader-%d", i), 4)))
	}
	close(done)

	for err := range readerErrs {
		assert.NoError(t, err)
	}

	listed, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, docs)
}
