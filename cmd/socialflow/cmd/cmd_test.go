package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteHelp(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"socialflow", "--help"}
	err := Execute()
	assert.NoError(t, err)
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3", "abc1234", "2026-01-01")
	assert.Equal(t, "1.2.3", appVersion)
	assert.Contains(t, rootCmd.Version, "1.2.3")
	assert.Contains(t, rootCmd.Version, "abc1234")
}

func TestRunPayload(t *testing.T) {
	t.Cleanup(func() {
		runInput = ""
		runInputFile = ""
	})

	t.Run("no input", func(t *testing.T) {
		runInput = ""
		runInputFile = ""
		payload, err := runPayload()
		require.NoError(t, err)
		assert.Nil(t, payload)
	})

	t.Run("inline JSON", func(t *testing.T) {
		runInput = `{"topic":"go"}`
		runInputFile = ""
		payload, err := runPayload()
		require.NoError(t, err)
		assert.JSONEq(t, `{"topic":"go"}`, string(payload))
	})

	t.Run("invalid JSON rejected", func(t *testing.T) {
		runInput = `{broken`
		runInputFile = ""
		_, err := runPayload()
		assert.Error(t, err)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "input.json")
		require.NoError(t, os.WriteFile(path, []byte(`[1,2,3]`), 0o600))
		runInput = ""
		runInputFile = path
		payload, err := runPayload()
		require.NoError(t, err)
		assert.JSONEq(t, `[1,2,3]`, string(payload))
	})

	t.Run("both sources rejected", func(t *testing.T) {
		runInput = `{}`
		runInputFile = "somewhere.json"
		_, err := runPayload()
		assert.Error(t, err)
	})
}

func TestCheckWritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	require.NoError(t, checkWritableDir(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")
}
