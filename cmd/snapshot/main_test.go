package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/common/urlutil"
	"github.com/telewebsaver/engine/internal/render/chrome"
)

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.pdf")
	dst := filepath.Join(dir, "out", "b.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))

	require.NoError(t, moveFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.pdf")
	dst := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.7"), 0o644))

	require.NoError(t, copyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}

func TestCopyFile_FailedCopyLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	// Opening a directory succeeds but reading it fails, so the copy breaks after dst exists
	src := filepath.Join(dir, "not-a-file")
	require.NoError(t, os.Mkdir(src, 0o755))
	dst := filepath.Join(dir, "b.pdf")

	require.Error(t, copyFile(src, dst))

	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err), "partial destination must be removed")
}

func TestRun_RejectsInvalidURL(t *testing.T) {
	err := run("ftp://example.com", t.TempDir(), time.Second, chrome.DefaultConfig(), zap.NewNop())
	assert.ErrorIs(t, err, urlutil.ErrUnsupportedScheme)
}

func TestRun_MissingBrowser(t *testing.T) {
	cfg := chrome.DefaultConfig()
	cfg.ExecPath = filepath.Join(t.TempDir(), "no-such-chrome")

	err := run("https://example.com", t.TempDir(), time.Second, cfg, zap.NewNop())
	assert.ErrorIs(t, err, chrome.ErrBrowserNotFound)
}
