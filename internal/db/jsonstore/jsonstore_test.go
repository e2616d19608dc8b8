package jsonstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")

	in := map[string]map[string]any{"-1001": {"username": "@alice"}}
	require.NoError(t, Save(path, in))

	out := map[string]map[string]any{}
	require.NoError(t, Load(path, &out))
	assert.Equal(t, "@alice", out["-1001"]["username"])
}

func TestLoadMissingFileIsNoop(t *testing.T) {
	out := map[string]int{"keep": 1}
	require.NoError(t, Load(filepath.Join(t.TempDir(), "absent.json"), &out))
	assert.Equal(t, map[string]int{"keep": 1}, out, "отсутствующий файл не трогает значение")
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	var out map[string]int
	assert.Error(t, Load(path, &out))
}

func TestSaveOverwritesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")

	require.NoError(t, Save(path, map[string]int{"a": 1, "b": 2}))
	require.NoError(t, Save(path, map[string]int{"a": 1}))

	out := map[string]int{}
	require.NoError(t, Load(path, &out))
	assert.Equal(t, map[string]int{"a": 1}, out)
}
