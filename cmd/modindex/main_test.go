package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/lfs/forge"
	"github.com/meigma/lfs/internal/testutil"
)

// newIndexServer serves an index of n mods with thumbnails.
func newIndexServer(t *testing.T, n int) *testutil.LFSServer {
	t.Helper()

	srv := testutil.NewLFSServer(t)
	files := make(map[string]string, 2*n)
	for i := range n {
		dir := fmt.Sprintf("repo-main/mods/author@mod%02d/", i)
		files[dir+"meta.json"] = fmt.Sprintf(`{"title":"Mod %02d","author":"author","repo":"r","downloadURL":"d","version":"1.0","categories":[],"last-updated":%d}`, i, 1700000000+i)
		content := bytes.Repeat([]byte{byte(i)}, 1000+i)
		srv.AddObject(content)
		files[dir+"thumbnail.png"] = testutil.PointerText(content)
	}
	srv.SetArchive(testutil.BuildArchive(t, files))
	return srv
}

func treeArgs(srv *testutil.LFSServer) []string {
	tree := srv.Tree()
	return []string{
		"--hostname", tree.Hostname,
		"--namespace", tree.Namespace,
		"--name", tree.Name,
		"--rev", tree.Revision,
		"--forge", "github",
		"--scheme", "http",
	}
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestListCmd(t *testing.T) {
	t.Parallel()

	srv := newIndexServer(t, 3)
	out, _, err := run(t, append([]string{"list"}, treeArgs(srv)...)...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "THUMBNAIL")
	assert.Contains(t, lines[1], "author@mod02", "newest first")
	assert.Contains(t, lines[3], "author@mod00")
	assert.Contains(t, lines[3], "1.0 kB")
	assert.Equal(t, 0, srv.Downloads(), "list does not download thumbnails")
}

func TestThumbnailsCmd(t *testing.T) {
	t.Parallel()

	srv := newIndexServer(t, 7)
	args := append([]string{"thumbnails", "--page-size", "3", "--pages", "0"}, treeArgs(srv)...)
	out, _, err := run(t, args...)
	require.NoError(t, err)

	assert.Contains(t, out, "page 1")
	assert.Contains(t, out, "page 3")
	assert.NotContains(t, out, "page 4")
	assert.Equal(t, 7, strings.Count(out, "thumbnail of"))
	assert.Equal(t, 1, srv.BatchCalls())
	assert.Equal(t, 7, srv.Downloads())
}

func TestThumbnailsCmdLimitsPages(t *testing.T) {
	t.Parallel()

	srv := newIndexServer(t, 10)
	args := append([]string{"thumbnails", "--page-size", "2", "--pages", "2"}, treeArgs(srv)...)
	out, _, err := run(t, args...)
	require.NoError(t, err)

	assert.Equal(t, 4, strings.Count(out, "thumbnail of"))
	assert.Equal(t, 4, srv.Downloads())
}

func TestGetCmd(t *testing.T) {
	t.Parallel()

	srv := newIndexServer(t, 5)
	args := append([]string{"get", "author@mod03", "author@mod01"}, treeArgs(srv)...)
	out, _, err := run(t, args...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "author@mod03")
	assert.Contains(t, lines[1], "author@mod01")
	assert.Equal(t, []int{2}, srv.BatchSizes())
	assert.Equal(t, 2, srv.Downloads())

	_, _, err = run(t, append([]string{"get", "nobody@nothing"}, treeArgs(srv)...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody@nothing")
}

func TestConfigFile(t *testing.T) {
	t.Parallel()

	srv := newIndexServer(t, 2)
	tree := srv.Tree()
	path := filepath.Join(t.TempDir(), "modindex.toml")
	content := fmt.Sprintf(`
log_level = "debug"
concurrency = 4
timeout = "5s"

[tree]
hostname = %q
namespace = "ns"
name = "repo"
revision = "main"
kind = "github"
scheme = "http"

[cache]
max_entries = 10
ttl = "1m"
`, tree.Hostname)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, tree, cfg.Tree)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Cache.MaxEntries)

	out, stderr, err := run(t, "list", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "author@mod01")
	assert.Contains(t, stderr, "fetching index")

	// Flags win over the file.
	_, _, err = run(t, "list", "--config", path, "--name", "missing")
	require.Error(t, err)
}

func TestConfigErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("colour = \"blue\"\n"), 0o600))
	_, err := loadConfig(unknown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")

	_, err = loadConfig(filepath.Join(dir, "absent.toml"))
	require.Error(t, err)

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, forge.DefaultTree(), cfg.Tree)

	_, _, err = run(t, "list", "--log-level", "loud")
	require.Error(t, err)
	_, _, err = run(t, "list", "--forge", "bitbucket")
	require.ErrorIs(t, err, forge.ErrUnknownKind)
}
