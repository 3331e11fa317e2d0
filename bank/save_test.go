package bank

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadNewest(t *testing.T) {
	dir := t.TempDir()
	b := New("Mix", 3)
	b.Rename(1, "Bass")
	b.Update(2, func(t *Track) { t.Muted = true; t.Pan = 10 })

	t0 := time.Date(2024, 1, 15, 14, 30, 0, 0, time.Local)
	first, err := saveAt(dir, New("Old", 1), "", t0)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15_14-30-00.json", first)

	second, err := saveAt(dir, b, "live set", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15_14-31-00_live-set.json", second)

	saves, err := ListSaves(dir)
	require.NoError(t, err)
	require.Len(t, saves, 2)
	assert.Equal(t, second, saves[0].Filename)
	assert.Equal(t, "live-set", saves[0].Label)
	assert.Equal(t, "", saves[1].Label)

	loaded, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "Mix", loaded.Name())
	assert.Equal(t, b.Tracks(), loaded.Tracks())

	old, err := Load(dir, first)
	require.NoError(t, err)
	assert.Equal(t, "Old", old.Name())
}

func TestListSavesSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2024-01-15_14-30-00.json"), 0755))

	saves, err := ListSaves(dir)
	require.NoError(t, err)
	assert.Empty(t, saves)

	missing, err := ListSaves(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = Load(dir, "")
	assert.Error(t, err)
}

func TestLoadClampsParams(t *testing.T) {
	dir := t.TempDir()
	body := `{"name":"Mix","tracks":[{"name":"A","color":2,"volume":900,"pan":-5}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-01-15_14-30-00.json"), []byte(body), 0644))

	b, err := Load(dir, "")
	require.NoError(t, err)
	tr, ok := b.Track(0)
	require.True(t, ok)
	assert.Equal(t, ParamMax, tr.Volume)
	assert.Equal(t, 0, tr.Pan)
}

func TestRenameAndDeleteSave(t *testing.T) {
	dir := t.TempDir()
	name, err := saveAt(dir, New("Mix", 1), "a", time.Date(2024, 1, 15, 14, 30, 0, 0, time.Local))
	require.NoError(t, err)

	renamed, err := RenameSave(dir, name, "b/c?")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15_14-30-00_b-c.json", renamed)

	_, err = RenameSave(dir, "junk.json", "x")
	assert.Error(t, err)

	require.NoError(t, DeleteSave(dir, renamed))
	saves, err := ListSaves(dir)
	require.NoError(t, err)
	assert.Empty(t, saves)
}
