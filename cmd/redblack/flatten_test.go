package main

import (
	"bytes"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyraxred/redblack"
	"github.com/cyraxred/redblack/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() (*core.DefaultLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &core.DefaultLogger{
		I: log.New(buffer, "[INFO] ", 0),
		W: log.New(buffer, "[WARN] ", 0),
		E: log.New(buffer, "[ERROR] ", 0),
	}, buffer
}

func TestParseKeys(t *testing.T) {
	keys, err := parseKeys([]string{"10", " -3", "2147483647"})
	assert.NoError(t, err)
	assert.Equal(t, []redblack.Key{10, -3, 2147483647}, keys)
	keys, err = parseKeys(nil)
	assert.NoError(t, err)
	assert.Empty(t, keys)
	_, err = parseKeys([]string{"1", "x"})
	assert.Contains(t, err.Error(), `invalid key "x"`)
	_, err = parseKeys([]string{"2147483648"})
	assert.Contains(t, err.Error(), "value out of range")
}

func TestLoadKeysFile(t *testing.T) {
	tempdir, err := ioutil.TempDir("", "redblack-")
	require.NoError(t, err)
	defer os.RemoveAll(tempdir)
	path := filepath.Join(tempdir, "keys.txt")
	require.NoError(t, ioutil.WriteFile(path, []byte("4 2\n\t7\n-1\n"), 0666))
	keys, err := loadKeysFile(path)
	assert.NoError(t, err)
	assert.Equal(t, []redblack.Key{4, 2, 7, -1}, keys)

	require.NoError(t, ioutil.WriteFile(path, []byte("4 two"), 0666))
	_, err = loadKeysFile(path)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), `invalid key "two"`)

	_, err = loadKeysFile(filepath.Join(tempdir, "missing.txt"))
	assert.Contains(t, err.Error(), "failed to read the keys from")
}

func TestRunFlatten(t *testing.T) {
	logger, logs := testLogger()
	out := &bytes.Buffer{}
	err := runFlatten(out, logger, flattenOptions{
		Keys: []redblack.Key{10, 20, 5, 1}, Erase: []redblack.Key{10}, Capacity: -1})
	assert.NoError(t, err)
	assert.Empty(t, logs.String())
	assert.Equal(t, `flatten:
  keys: [1, 5, 20]
  written: 3
  len: 3
  min: 1
  max: 20
  height: 2
  height_limit: 4
  black_height: 2
`, out.String())
}

func TestRunFlattenCapacityAndMissing(t *testing.T) {
	logger, logs := testLogger()
	out := &bytes.Buffer{}
	err := runFlatten(out, logger, flattenOptions{
		Keys: []redblack.Key{3, 1, 2, 2}, Erase: []redblack.Key{2, 9}, Capacity: 2})
	assert.NoError(t, err)
	assert.Contains(t, logs.String(), "[WARN] key 9 is not in the tree")
	assert.Contains(t, out.String(), "keys: [1, 2]\n")
	assert.Contains(t, out.String(), "written: 2\n")
	assert.Contains(t, out.String(), "len: 3\n")
	assert.Contains(t, out.String(), "missing: [9]\n")
}

func TestRunFlattenEmpty(t *testing.T) {
	logger, _ := testLogger()
	out := &bytes.Buffer{}
	assert.NoError(t, runFlatten(out, logger, flattenOptions{Capacity: -1}))
	assert.Contains(t, out.String(), "keys: []\n")
	assert.Contains(t, out.String(), "min: null\n")
	assert.Contains(t, out.String(), "max: null\n")
	assert.Contains(t, out.String(), "height: 0\n")
	assert.NotContains(t, out.String(), "missing")
}
