//go:build unix

package asar

import "io/fs"

// entryIsExecutable reports whether the source file carries an owner
// executable bit.
func entryIsExecutable(info fs.FileInfo) bool {
	return info.Mode()&0o100 != 0
}

// entryFileMode returns the permission bits for an extracted file.
func entryFileMode(executable bool) fs.FileMode {
	if executable {
		return 0o755
	}
	return 0o644
}
