package storage

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStoreWriteOpenRoundTrip(t *testing.T) {
	blobs, err := NewFileSystemBlobStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, blobs.Write("pastes/1/src/main.py", []byte("print('hi')")))

	rc, err := blobs.Open("pastes/1/src/main.py")
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(content))
}

func TestBlobStoreOpenMissing(t *testing.T) {
	blobs, err := NewFileSystemBlobStore(t.TempDir())
	require.NoError(t, err)

	_, err = blobs.Open("pastes/404/nope.txt")
	assert.Error(t, err)
}

func TestBlobStoreWriteReplaces(t *testing.T) {
	blobs, err := NewFileSystemBlobStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, blobs.Write("pastes/1/a.txt", []byte("one")))
	require.NoError(t, blobs.Write("pastes/1/a.txt", []byte("two")))

	rc, err := blobs.Open("pastes/1/a.txt")
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "two", string(content))
}
