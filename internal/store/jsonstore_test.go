package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DegradedStates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	cases := []struct {
		name  string
		path  string
		state LoadState
	}{
		{name: "missing", path: filepath.Join(dir, "nope.json"), state: StateMissing},
		{name: "empty", path: write("empty.json", "  \n"), state: StateEmpty},
		{name: "null", path: write("null.json", "null"), state: StateEmpty},
		{name: "malformed", path: write("bad.json", `[{"id": `), state: StateCorrupt},
		{name: "wrong shape", path: write("object.json", `{"id": 1}`), state: StateCorrupt},
		{name: "directory", path: dir, state: StateCorrupt},
	}

	for _, tc := range cases {
		items, state := Load[Team](tc.path)
		assert.Equal(t, tc.state, state, tc.name)
		assert.NotNil(t, items, tc.name)
		assert.Empty(t, items, tc.name)
	}
}

func TestSaveLoad_RoundTripKeepsURLsReadable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "teams", "EPL.json")
	teams := []Team{{ID: 57, Name: "Arsenal FC", ShortName: "Arsenal", TLA: "ARS", Crest: "https://crests.example/57.png?a=1&b=2"}}

	require.NoError(t, Save(path, teams))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "a=1&b=2")

	loaded, state := Load[Team](path)
	assert.Equal(t, StateLoaded, state)
	assert.Equal(t, teams, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSave_EmptyCollectionWritesArray(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, Save[Video](path, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestSave_EmptyPath(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Save[Video]("", nil), ErrEmptyPath)
}

func TestJSONFile(t *testing.T) {
	t.Parallel()

	f := NewJSONFile[StreamLink](filepath.Join(t.TempDir(), "json", "hesgoal.json"))
	items, state := f.Load()
	assert.Equal(t, StateMissing, state)
	assert.Empty(t, items)

	require.NoError(t, f.Save([]StreamLink{{URL: "https://x.example/1", Label: "ars-che"}}))
	items, state = f.Load()
	assert.Equal(t, StateLoaded, state)
	require.Len(t, items, 1)
	assert.Equal(t, "ars-che", items[0].Label)
}
