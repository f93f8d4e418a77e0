package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadiusmc/delphi/internal/errors"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "auto", c.Log.Format)
	assert.Equal(t, DefaultNamespace, c.Metrics.Namespace)
	assert.Equal(t, DefaultDebugAddr, c.Debug.Addr)
	assert.Equal(t, DefaultBridgePath, c.Bridge.Path)
	assert.Equal(t, 5*time.Second, c.CallTimeout())
	assert.Equal(t, 100*time.Millisecond, c.Debounce())
	assert.True(t, c.DebugEnabled())
	assert.Equal(t, ".", c.Dir())
}

func TestParseJSONWithComments(t *testing.T) {
	data := []byte(`{
  // verbose while developing
  "log": {"level": "debug", "format": "json"},
  "debug": {
    "addr": "off",
    "s3": {"bucket": "ui-dumps", "prefix": "lobby/"}, /* trailing comma */
  },
  "journal": {"path": "run.journal", "compress": true},
}`)

	c, err := Parse(data, ".json")
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)
	assert.False(t, c.DebugEnabled())
	assert.Equal(t, "ui-dumps", c.Debug.S3.Bucket)
	assert.Equal(t, "lobby/", c.Debug.S3.Prefix)
	assert.Equal(t, "run.journal", c.Journal.Path)
	assert.True(t, c.Journal.Compress)
	assert.Equal(t, "pages", c.Pages.Dir, "unset fields get defaults")
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
log:
  level: warn
bridge:
  path: /ui
  callTimeout: 250ms
pages:
  dir: screens
  debounce: 1s
`)
	c, err := Parse(data, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, "/ui", c.Bridge.Path)
	assert.Equal(t, 250*time.Millisecond, c.CallTimeout())
	assert.Equal(t, "screens", c.Pages.Dir)
	assert.Equal(t, time.Second, c.Debounce())
}

func TestParseEmpty(t *testing.T) {
	for _, ext := range []string{".json", ".yml"} {
		c, err := Parse(nil, ext)
		require.NoError(t, err, ext)
		assert.Equal(t, Default().Log, c.Log)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
		code string
	}{
		{"malformed json", `{"log": `, ".json", "D002"},
		{"malformed yaml", "log: [", ".yaml", "D002"},
		{"bad level", `{"log": {"level": "loud"}}`, ".json", "D003"},
		{"bad format", `{"log": {"format": "xml"}}`, ".json", "D003"},
		{"bad addr", `{"debug": {"addr": "7071"}}`, ".json", "D003"},
		{"bad bridge path", `{"bridge": {"path": "bridge"}}`, ".json", "D003"},
		{"bad timeout", `{"bridge": {"callTimeout": "soon"}}`, ".json", "D003"},
		{"negative debounce", `{"pages": {"debounce": "-1s"}}`, ".json", "D003"},
		{"prefix without bucket", `{"debug": {"s3": {"prefix": "x/"}}}`, ".json", "D003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.ext)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.Code(err))
		})
	}
}

func TestLoadFindsFiles(t *testing.T) {
	dir := t.TempDir()

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, c.Path(), "no file means defaults")
	assert.False(t, Exists(dir))

	path := filepath.Join(dir, "delphi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  path: j.bin\n"), 0o644))

	c, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, path, c.Path())
	assert.Equal(t, dir, c.Dir())
	assert.Equal(t, filepath.Join(dir, "j.bin"), c.Resolve(c.Journal.Path))
	assert.Equal(t, "/abs/pages", c.Resolve("/abs/pages"))

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	root, ok := FindProjectRoot(nested)
	require.True(t, ok)
	assert.Equal(t, dir, root)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "delphi.json"))
	assert.Equal(t, "D001", errors.Code(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
