package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.SaveStream("photos/a.png", bytes.NewReader([]byte("img")))
	require.NoError(t, err)
	assert.Equal(t, "photos/a.png", name)

	f, err := store.Open(name)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))

	require.NoError(t, store.Delete(name))
	require.NoError(t, store.Delete(name))
	_, err = os.Stat(store.Path(name))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../escape.txt", []byte("x"))
	assert.True(t, errors.Is(err, ErrInvalidPath))
	_, err = store.Open("/etc/passwd")
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestLocalStorageListOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("photos/old.png", []byte("x"))
	require.NoError(t, err)
	_, err = store.Save("photos/new.png", []byte("x"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("photos/old.png"), past, past))

	names, err := store.ListOlderThan("photos", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/old.png"}, names)

	names, err = store.ListOlderThan("missing", time.Hour)
	require.NoError(t, err)
	assert.Empty(t, names)
}
