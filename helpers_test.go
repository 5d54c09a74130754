package asar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeSourceTree materializes files (keyed by slash-separated relative
// path) under a fresh temp directory and returns its path.
func writeSourceTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, content, 0o644))
	}
	return dir
}

// packTestArchive packs files into a fresh container and returns the
// archive path plus the header fingerprint.
func packTestArchive(t *testing.T, files map[string][]byte, opts ...PackOption) (string, string) {
	t.Helper()
	src := writeSourceTree(t, files)
	out := filepath.Join(t.TempDir(), "test.asar")
	fingerprint, err := Pack(context.Background(), src, out, opts...)
	require.NoError(t, err)
	return out, fingerprint
}

// collectEntries drains a walk into parallel path/entry slices.
func collectEntries(t *testing.T, root *Node, skipUnpacked bool) ([]string, []*Entry) {
	t.Helper()
	var paths []string
	var entries []*Entry
	for p, e := range Walk(root, skipUnpacked) {
		paths = append(paths, p)
		entries = append(entries, e)
	}
	return paths, entries
}

// mustAdd attaches child under parent, failing the test on error.
func mustAdd(t *testing.T, parent *Node, name string, child *Node) {
	t.Helper()
	require.NoError(t, parent.Add(name, child))
}
