// Package asar implements an uncompressed archive container that stores a
// virtual file tree inside a single binary blob: a length-prefixed JSON
// header describing the tree, followed by concatenated file contents.
//
// The container layout is little-endian throughout:
//   - a 16-byte preamble of four uint32 fields (headerDataSize,
//     jsonBinarySize, jsonDataSize, jsonStringSize)
//   - the UTF-8 JSON file tree, NUL-padded to a 4-byte boundary
//   - file contents, each at its header-declared offset relative to the
//     body offset
//
// Entry offsets are encoded as decimal strings and assigned in depth-first
// walk order, so packed entries are contiguous. Each packed entry carries
// an integrity record: a whole-file SHA-256 plus per-block digests.
// Entries may instead be flagged "unpacked", with content stored in a
// sibling <archive>.unpacked directory tree outside the container body.
//
// # Quick Start
//
// Pack a directory:
//
//	fingerprint, err := asar.Pack(ctx, "./app", "app.asar")
//	if err != nil {
//	    return err
//	}
//
// Open and extract:
//
//	a, err := asar.Open("app.asar")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	err = a.Extract("./app-out")
//
// Read a single file without extracting:
//
//	content, err := a.ReadFile("dist/main.js")
//
// The codec is single-threaded and synchronous. Operations on distinct
// archive paths may run concurrently; operations on the same path must be
// serialized by the caller.
package asar
