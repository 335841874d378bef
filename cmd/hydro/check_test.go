package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCheck(t *testing.T, dataDir string) (string, error) {
	t.Helper()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("STALE_THRESHOLD", "1h")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"check"})
	err := cmd.Execute()
	return out.String(), err
}

func TestCheck_FreshFeeds(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"bafu_url_2.xml", "bafu_url_6.xml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("<locations/>"), 0o644))
	}

	out, err := runCheck(t, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "feeds fresh")
}

func TestCheck_StaleFeed(t *testing.T) {
	dir := t.TempDir()
	fresh := filepath.Join(dir, "bafu_url_2.xml")
	stale := filepath.Join(dir, "bafu_url_6.xml")
	require.NoError(t, os.WriteFile(fresh, []byte("<locations/>"), 0o644))
	require.NoError(t, os.WriteFile(stale, []byte("<locations/>"), 0o644))
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	out, err := runCheck(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bafu_url_6.xml")
	assert.NotContains(t, err.Error(), "bafu_url_2.xml")
	assert.Contains(t, out, "bafu_url_6.xml")
}

func TestCheck_MissingFeed(t *testing.T) {
	_, err := runCheck(t, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["fetch"])
	assert.True(t, names["check"])
	assert.True(t, names["validate"])
}
