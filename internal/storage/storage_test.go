package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCard() *MemMounter {
	return NewMemMounter(map[string][]byte{
		"B/02.wav":   []byte("two"),
		"B/01.wav":   []byte("one"),
		"B/.hidden":  []byte("x"),
		"A/x.wav":    []byte("xx"),
		"STATE.BIN":  make([]byte, 20),
		"CONFIG.INI": []byte("seed=1\n"),
	})
}

func TestOpenDir_SortedAndSkipsHidden(t *testing.T) {
	vol, err := testCard().Mount()
	require.NoError(t, err)

	root, err := vol.OpenDir("/")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), root.Count())

	var names []string
	for e := root.Read(); e.Valid(); e = root.Read() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"A", "B", "CONFIG.INI", "STATE.BIN"}, names)

	sub, err := vol.OpenDir("B")
	require.NoError(t, err)
	first := sub.Read()
	assert.Equal(t, "01.wav", first.Name)
	assert.Equal(t, "B/01.wav", first.Path)
	assert.Equal(t, int64(3), first.Size)
	assert.False(t, first.Dir)
}

func TestDir_SeekLeavesCursorAfterEntry(t *testing.T) {
	vol, err := testCard().Mount()
	require.NoError(t, err)
	root, err := vol.OpenDir("")
	require.NoError(t, err)

	e, err := root.Seek(1)
	require.NoError(t, err)
	assert.Equal(t, "B", e.Name)
	assert.True(t, e.Dir)
	assert.Equal(t, "CONFIG.INI", root.Read().Name)

	_, err = root.Seek(4)
	require.ErrorIs(t, err, ErrNoFile)

	root.Rewind()
	assert.Equal(t, "A", root.Read().Name)
}

func TestOpen_ClosesPreviousFile(t *testing.T) {
	vol, err := testCard().Mount()
	require.NoError(t, err)
	sub, err := vol.OpenDir("B")
	require.NoError(t, err)

	f1, err := vol.Open(sub.Read())
	require.NoError(t, err)
	f2, err := vol.Open(sub.Read())
	require.NoError(t, err)

	_, err = f1.Read(make([]byte, 1))
	require.ErrorIs(t, err, ErrFileStale)

	data, err := io.ReadAll(f2)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestSnapshotRestore(t *testing.T) {
	vol, err := testCard().Mount()
	require.NoError(t, err)
	sub, err := vol.OpenDir("B")
	require.NoError(t, err)

	f, err := vol.Open(sub.Read())
	require.NoError(t, err)
	buf := make([]byte, 1)
	_, err = f.Read(buf)
	require.NoError(t, err)

	pos := vol.Snapshot()
	require.NoError(t, vol.WriteFile("STATE.BIN", []byte("abc")))
	_, err = f.Read(buf)
	require.ErrorIs(t, err, ErrFileStale)

	vol.Restore(pos)
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "ne", string(rest))
}

func TestWriteFile(t *testing.T) {
	card := testCard()
	vol, err := card.Mount()
	require.NoError(t, err)

	require.NoError(t, vol.WriteFile("/STATE.BIN", []byte{1, 2}))
	data, ok := card.File("STATE.BIN")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, data)

	require.ErrorIs(t, vol.WriteFile("NEW.BIN", []byte{1}), ErrNotExist)

	got, err := vol.ReadFile("STATE.BIN")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)
}

func TestReadOnlyVolume(t *testing.T) {
	vol := NewVolume(os.DirFS(t.TempDir()), nil)
	require.ErrorIs(t, vol.WriteFile("x", nil), ErrReadOnly)
}

func TestDirMounter(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "album"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "album", "a.wav"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "STATE.BIN"), []byte("old"), 0o644))

	vol, err := DirMounter{Root: root}.Mount()
	require.NoError(t, err)

	sub, err := vol.OpenDir("album")
	require.NoError(t, err)
	e := sub.Read()
	assert.Equal(t, int64(4), e.Size)

	f, err := vol.Open(e)
	require.NoError(t, err)
	_, err = f.Seek(2, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "ta", string(rest))
	require.NoError(t, f.Close())

	require.NoError(t, vol.WriteFile("STATE.BIN", []byte("new")))
	data, err := os.ReadFile(filepath.Join(root, "STATE.BIN"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	require.ErrorIs(t, vol.WriteFile("MISSING.BIN", []byte("x")), ErrNotExist)
	_, err = os.Stat(filepath.Join(root, "MISSING.BIN"))
	assert.True(t, os.IsNotExist(err))
}

func TestDirMounter_MissingRoot(t *testing.T) {
	_, err := DirMounter{Root: filepath.Join(t.TempDir(), "nope")}.Mount()
	require.Error(t, err)
}
