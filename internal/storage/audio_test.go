package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioStore(t *testing.T) {
	store, err := NewAudioStore(filepath.Join(t.TempDir(), "audio"))
	require.NoError(t, err)

	t.Run("save names file by session and turn", func(t *testing.T) {
		saved, err := store.Save("s1", 3, []byte("webm-bytes"))
		require.NoError(t, err)

		assert.Regexp(t, regexp.MustCompile(`^session_s1_turn_3_[0-9a-f]{32}\.webm$`), saved.Filename)
		assert.Equal(t, "/audio/"+saved.Filename, saved.URL)

		data, err := os.ReadFile(filepath.Join(store.Dir(), saved.Filename))
		require.NoError(t, err)
		assert.Equal(t, []byte("webm-bytes"), data)
	})

	t.Run("two saves never collide", func(t *testing.T) {
		a, err := store.Save("s1", 1, []byte("a"))
		require.NoError(t, err)
		b, err := store.Save("s1", 1, []byte("b"))
		require.NoError(t, err)
		assert.NotEqual(t, a.Filename, b.Filename)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		saved, err := store.Save("s2", 1, []byte("x"))
		require.NoError(t, err)

		require.NoError(t, store.Remove(saved.Filename))
		require.NoError(t, store.Remove(saved.Filename))
		_, err = os.Stat(filepath.Join(store.Dir(), saved.Filename))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestPurgeOlderThan(t *testing.T) {
	store, err := NewAudioStore(t.TempDir())
	require.NoError(t, err)

	old, err := store.Save("s1", 1, []byte("old"))
	require.NoError(t, err)
	fresh, err := store.Save("s1", 2, []byte("fresh"))
	require.NoError(t, err)

	past := time.Now().Add(-90 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.Dir(), old.Filename), past, past))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("keep"), 0o640))
	require.NoError(t, os.Chtimes(filepath.Join(store.Dir(), "notes.txt"), past, past))

	removed, err := store.PurgeOlderThan(time.Now().Add(-60 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(store.Dir(), fresh.Filename))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(store.Dir(), "notes.txt"))
	assert.NoError(t, err)
}
