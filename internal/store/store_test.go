package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return s
}

func TestStore_SaveLoad(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Load("/proj", "__default")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown key")

	items := []string{`{"value":"a.go","context":{"row":3,"col":1}}`, `{"value":"b.go","context":{"row":1,"col":0}}`}
	require.NoError(t, s.Save("/proj", "__default", items))

	got, err = s.Load("/proj", "__default")
	require.NoError(t, err)
	assert.Equal(t, items, got)

	got, err = s.Load("/proj", "other")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown list")

	require.NoError(t, s.Save("/proj", "__default", nil))
	got, err = s.Load("/proj", "__default")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_FileLayout(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("/proj", "todo", []string{"x"}))

	path := s.Path("/proj")
	assert.Equal(t, s.Dir(), filepath.Dir(path))
	assert.Len(t, filepath.Base(path), 64+len(".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/proj", gjson.GetBytes(data, "key").String())
	assert.Equal(t, `["x"]`, gjson.GetBytes(data, "lists.todo").Raw)

	assert.NotEqual(t, s.Path("/proj"), s.Path("/other"))
}

func TestStore_ListNamesWithPathSyntax(t *testing.T) {
	s := newTestStore(t)
	names := []string{"a.b", "x*y", "q?", "with space", "__default"}
	for i, n := range names {
		require.NoError(t, s.Save("/proj", n, []string{n, string(rune('0' + i))}))
	}

	for i, n := range names {
		got, err := s.Load("/proj", n)
		require.NoError(t, err, n)
		assert.Equal(t, []string{n, string(rune('0' + i))}, got, n)
	}

	listed, err := s.Lists("/proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"__default", "a.b", "q?", "with space", "x*y"}, listed)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("/proj", "a", []string{"1"}))
	require.NoError(t, s.Save("/proj", "b", []string{"2"}))

	require.NoError(t, s.Delete("/proj", "a"))
	listed, err := s.Lists("/proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, listed)

	listed, err = s.Lists("/never")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestStore_KeysAreIsolated(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("/a", "l", []string{"a"}))
	require.NoError(t, s.Save("/b", "l", []string{"b"}))

	got, err := s.Load("/a", "l")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestStore_Errors(t *testing.T) {
	s := newTestStore(t)

	assert.ErrorIs(t, s.Save("", "l", nil), ErrEmptyKey)

	require.NoError(t, os.WriteFile(s.Path("/bad"), []byte("{nope"), 0o644))
	_, err := s.Load("/bad", "l")
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, s.Save("/bad", "l", []string{"x"}), ErrCorrupt)

	require.NoError(t, os.WriteFile(s.Path("/shape"), []byte(`{"lists":{"l":"scalar"}}`), 0o644))
	_, err = s.Load("/shape", "l")
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, os.WriteFile(s.Path("/mixed"), []byte(`{"lists":{"l":["ok",3]}}`), 0o644))
	got, err := s.Load("/mixed", "l")
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, got)
}

func TestStore_Watch(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("/proj", "l", []string{"first"}))

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, "/proj", func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	other, err := New(s.Dir())
	require.NoError(t, err)
	require.NoError(t, other.Save("/unrelated", "l", []string{"x"}))
	require.NoError(t, other.Save("/proj", "l", []string{"second"}))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}

	got, err := s.Load("/proj", "l")
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, got)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}
