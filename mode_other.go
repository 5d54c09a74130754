//go:build !unix

package asar

import "io/fs"

// entryIsExecutable always reports false where the OS has no Unix
// permission model. The flag still round-trips through the header.
func entryIsExecutable(info fs.FileInfo) bool {
	return false
}

// entryFileMode returns the permission bits for an extracted file.
func entryFileMode(executable bool) fs.FileMode {
	return 0o644
}
