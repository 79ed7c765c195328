package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func testDocument(id int64, author string, created time.Time) Document {
	utc := created.UTC()
	return Document{
		DocID:       fmt.Sprintf("%d", id),
		Author:      author,
		Description: "a test paste",
		Filename:    "example.py",
		Content:     "some content",
		Created:     utc,
		Rank:        utc.Unix(),
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	doc := testDocument(1, "alice", time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, idx.Upsert(ctx, doc))
	require.NoError(t, idx.Upsert(ctx, doc))

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestQueryOrdersNewestFirst(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 3; i++ {
		doc := testDocument(i, "alice", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, idx.Upsert(ctx, doc))
	}

	ids, _, err := idx.Query(ctx, "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, ids)
}

func TestQueryByAuthorField(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, idx.Upsert(ctx, testDocument(1, "alice", base)))
	require.NoError(t, idx.Upsert(ctx, testDocument(2, "bob", base.Add(time.Hour))))

	ids, _, err := idx.Query(ctx, `author:"alice"`, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
}

func TestQueryPaginationCoversEveryDocumentOnce(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, idx.Upsert(ctx, testDocument(i, "alice", base.Add(time.Duration(i)*time.Hour))))
	}

	seen := make(map[string]int)
	cursor := ""
	pages := 0
	for {
		ids, next, err := idx.Query(ctx, "", cursor, 2)
		require.NoError(t, err)
		for _, id := range ids {
			seen[id]++
		}
		pages++
		require.Less(t, pages, 10, "pagination must terminate")
		if next == "" {
			break
		}
		cursor = next
	}

	require.Len(t, seen, 5)
	for id, count := range seen {
		assert.Equal(t, 1, count, "doc %s returned more than once", id)
	}
}

func TestQueryPaginationTerminatesOnExactMultiple(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 4; i++ {
		require.NoError(t, idx.Upsert(ctx, testDocument(i, "alice", base.Add(time.Duration(i)*time.Hour))))
	}

	total := 0
	cursor := ""
	for {
		ids, next, err := idx.Query(ctx, "", cursor, 2)
		require.NoError(t, err)
		total += len(ids)
		if next == "" {
			break
		}
		cursor = next
	}

	assert.Equal(t, 4, total)
}

func TestQuerySyntaxError(t *testing.T) {
	idx := newTestIndex(t)

	_, _, err := idx.Query(context.Background(), "author:", "", 10)
	assert.ErrorIs(t, err, ErrQuerySyntax)
}

func TestQueryCursorInvalid(t *testing.T) {
	idx := newTestIndex(t)

	_, _, err := idx.Query(context.Background(), "", "!!! not a cursor !!!", 10)
	assert.ErrorIs(t, err, ErrCursorInvalid)
}

func TestDeleteRemovesDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, testDocument(1, "alice", time.Now())))
	require.NoError(t, idx.Delete(ctx, "1"))

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
