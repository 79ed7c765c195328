package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidwtbuxton/pastebin/pkg/paste"
	"github.com/davidwtbuxton/pastebin/pkg/storage"
)

// fakeIDQuery returns canned ids and records the arguments it was called
// with.
type fakeIDQuery struct {
	ids  []string
	next string
	err  error

	gotExpression string
	gotCursor     string
	gotLimit      int
}

func (f *fakeIDQuery) Query(ctx context.Context, expression, cursor string, limit int) ([]string, string, error) {
	f.gotExpression = expression
	f.gotCursor = cursor
	f.gotLimit = limit
	return f.ids, f.next, f.err
}

// fakeReader serves pastes from a map, in whatever iteration order.
type fakeReader map[int64]*paste.Paste

func (f fakeReader) GetPaste(ctx context.Context, id int64) (*paste.Paste, error) {
	p, ok := f[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p, nil
}

func TestSearchPreservesIndexOrder(t *testing.T) {
	queries := &fakeIDQuery{ids: []string{"30", "10", "20"}}
	store := fakeReader{
		10: {ID: 10},
		20: {ID: 20},
		30: {ID: 30},
	}
	svc := NewService(queries, store, 20)

	page, err := svc.Search(context.Background(), nil, "", 0)
	require.NoError(t, err)

	require.Len(t, page.Results, 3)
	assert.Equal(t, int64(30), page.Results[0].ID)
	assert.Equal(t, int64(10), page.Results[1].ID)
	assert.Equal(t, int64(20), page.Results[2].ID)
}

func TestSearchLeavesGapForMissingPaste(t *testing.T) {
	queries := &fakeIDQuery{ids: []string{"30", "10", "20"}}
	store := fakeReader{
		10: {ID: 10},
		30: {ID: 30},
	}
	svc := NewService(queries, store, 20)

	page, err := svc.Search(context.Background(), nil, "", 0)
	require.NoError(t, err)

	require.Len(t, page.Results, 3)
	assert.Equal(t, int64(30), page.Results[0].ID)
	assert.Equal(t, int64(10), page.Results[1].ID)
	assert.Nil(t, page.Results[2], "deleted paste should leave a gap, not shift results")
}

func TestSearchDefaultLimit(t *testing.T) {
	queries := &fakeIDQuery{}
	svc := NewService(queries, fakeReader{}, 20)

	_, err := svc.Search(context.Background(), nil, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 20, queries.gotLimit)

	_, err = svc.Search(context.Background(), nil, "", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, queries.gotLimit)
}

func TestSearchBuildsExpressionFromParams(t *testing.T) {
	queries := &fakeIDQuery{}
	svc := NewService(queries, fakeReader{}, 20)

	_, err := svc.Search(context.Background(), map[string]string{"author": "alice", "q": "foo"}, "tok", 0)
	require.NoError(t, err)
	assert.Equal(t, `author:"alice" foo`, queries.gotExpression)
	assert.Equal(t, "tok", queries.gotCursor)
}

func TestSearchPaginationState(t *testing.T) {
	queries := &fakeIDQuery{ids: []string{"1"}, next: "tok2"}
	svc := NewService(queries, fakeReader{1: {ID: 1}}, 20)

	page, err := svc.Search(context.Background(), nil, "", 0)
	require.NoError(t, err)
	assert.True(t, page.HasNext)
	assert.Equal(t, "tok2", page.NextPageToken)

	queries.next = ""
	page, err = svc.Search(context.Background(), nil, "", 0)
	require.NoError(t, err)
	assert.False(t, page.HasNext)
	assert.Equal(t, "", page.NextPageToken)
}

func TestSearchSurfacesQueryErrors(t *testing.T) {
	queries := &fakeIDQuery{err: ErrQuerySyntax}
	svc := NewService(queries, fakeReader{}, 20)

	_, err := svc.Search(context.Background(), map[string]string{"q": "bad"}, "", 0)
	assert.ErrorIs(t, err, ErrQuerySyntax)
}

// TestSearchEndToEnd runs the whole pipeline against a real in-memory index.
func TestSearchEndToEnd(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	store := fakeReader{}
	blobs := fakeBlobs{}
	for i := int64(1); i <= 3; i++ {
		author := "alice"
		if i == 2 {
			author = "bob"
		}
		p := &paste.Paste{ID: i, Author: author, Filename: "f.py", Created: base.Add(time.Duration(i) * time.Hour)}
		store[i] = p

		doc, err := BuildDocument(p, blobs)
		require.NoError(t, err)
		require.NoError(t, idx.Upsert(ctx, doc))
	}

	svc := NewService(idx, store, 20)

	page, err := svc.Search(ctx, map[string]string{"author": "alice"}, "", 0)
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, int64(3), page.Results[0].ID)
	assert.Equal(t, int64(1), page.Results[1].ID)
	assert.False(t, page.HasNext)
}
