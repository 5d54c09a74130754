package asar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path"
	"path/filepath"
)

// Archive provides read access to a container: header inspection, single
// entry reads, and extraction to disk.
//
// An Archive holds an open handle on the container file until Close. It is
// not safe for concurrent use.
type Archive struct {
	path       string
	f          *os.File
	root       *Node
	headerJSON []byte
	bodyOffset int64
	closed     bool
}

// Open opens the container at p and parses its header. File contents are
// not read; the handle is retained for random access until Close.
//
// A missing container reports fs.ErrNotExist; a header violating the
// format invariants reports ErrMalformedHeader.
func Open(p string) (*Archive, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	root, jsonBytes, bodyOffset, err := decodeHeader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return &Archive{
		path:       p,
		f:          f,
		root:       root,
		headerJSON: jsonBytes,
		bodyOffset: bodyOffset,
	}, nil
}

// Path returns the container path passed to Open.
func (a *Archive) Path() string { return a.path }

// BodyOffset returns the container position where file contents begin.
func (a *Archive) BodyOffset() int64 { return a.bodyOffset }

// Root returns the archive's file tree. The tree is shared, not a copy;
// treat it as read-only.
func (a *Archive) Root() *Node { return a.root }

// HeaderDigest returns the SHA-256 hex digest of the header's unpadded
// JSON text, the archive's structural fingerprint.
func (a *Archive) HeaderDigest() string {
	return headerFingerprint(a.headerJSON)
}

// Entries returns a lazy walk over every file entry in offset order.
func (a *Archive) Entries() iter.Seq2[string, *Entry] {
	return Walk(a.root, false)
}

// PackedEntries returns a lazy walk over entries stored in the container
// body, skipping unpacked ones.
func (a *Archive) PackedEntries() iter.Seq2[string, *Entry] {
	return Walk(a.root, true)
}

// ReadFile returns the content of the named entry. Packed entries are read
// from the container body; unpacked entries from the sidecar tree.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	e, rel, err := a.lookupFile(name)
	if err != nil {
		return nil, err
	}
	if e.Unpacked {
		return os.ReadFile(a.unpackedPath(rel))
	}
	buf := make([]byte, e.Size)
	if _, err := io.ReadFull(a.entryReader(e), buf); err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return buf, nil
}

// Verify recomputes the named entry's integrity record and compares it to
// the header's copy. Entries without a record (unpacked files) verify
// trivially. A content change reports ErrHashMismatch.
func (a *Archive) Verify(name string) error {
	e, rel, err := a.lookupFile(name)
	if err != nil {
		return err
	}
	if e.Integrity == nil {
		return nil
	}
	var r io.Reader
	if e.Unpacked {
		f, err := os.Open(a.unpackedPath(rel))
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	} else {
		r = a.entryReader(e)
	}
	if err := verifyReader(r, e.Integrity); err != nil {
		return fmt.Errorf("verify %s: %w", rel, err)
	}
	return nil
}

// Extract materializes the archive's tree under destDir.
//
// destDir must not already exist; extraction never merges into an existing
// tree. Unpacked entries are copied from the <archive>.unpacked sidecar; a
// missing sidecar file is logged as a warning and skipped rather than
// failing the extraction.
func (a *Archive) Extract(destDir string, opts ...ExtractOption) error {
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if a.closed {
		return ErrClosed
	}
	if _, err := os.Lstat(destDir); err == nil {
		return fmt.Errorf("extract to %s: %w", destDir, fs.ErrExist)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	// Directory skeleton first, so empty directories survive extraction.
	for rel, node := range walkNodes(a.root) {
		if !node.IsDir() || rel == "" || !cfg.selected(rel) {
			continue
		}
		if err := os.MkdirAll(filepath.Join(destDir, filepath.FromSlash(rel)), 0o755); err != nil {
			return err
		}
	}

	buf := make([]byte, DefaultBlockSize)
	var bytesDone uint64
	filesDone := 0
	for rel, e := range Walk(a.root, false) {
		if !cfg.selected(rel) {
			continue
		}
		dest := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}

		if e.Unpacked {
			copied, err := a.copyUnpacked(rel, dest, e, buf)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					logger.Warn("missing unpacked file, skipping", "path", rel, "archive", a.path)
					continue
				}
				return err
			}
			bytesDone += copied
		} else {
			if err := a.extractPacked(rel, dest, e, buf); err != nil {
				return err
			}
			bytesDone += e.Size
		}

		filesDone++
		if cfg.progress != nil {
			cfg.progress(ProgressEvent{
				Stage:     StageExtracting,
				Path:      rel,
				BytesDone: bytesDone,
				FilesDone: filesDone,
			})
		}
	}
	return nil
}

// Close releases the container handle. Safe to call multiple times.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	return a.f.Close()
}

// entryReader returns a reader over a packed entry's bytes in the body.
func (a *Archive) entryReader(e *Entry) *io.SectionReader {
	return io.NewSectionReader(a.f, a.bodyOffset+int64(e.Offset), int64(e.Size))
}

// lookupFile resolves name to a file entry, normalizing the path and
// enforcing the open-state machine.
func (a *Archive) lookupFile(name string) (*Entry, string, error) {
	if a.closed {
		return nil, "", ErrClosed
	}
	rel := path.Clean("/" + filepath.ToSlash(name))[1:]
	node, ok := a.root.Lookup(rel)
	if !ok {
		return nil, "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if node.IsDir() {
		return nil, "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return node.entry, rel, nil
}

// unpackedPath maps an archive-relative path into the sidecar tree.
func (a *Archive) unpackedPath(rel string) string {
	return filepath.Join(a.path+".unpacked", filepath.FromSlash(rel))
}

// extractPacked streams one packed entry from the body to dest.
func (a *Archive) extractPacked(rel, dest string, e *Entry, buf []byte) error {
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entryFileMode(e.Executable))
	if err != nil {
		return err
	}
	n, err := io.CopyBuffer(out, a.entryReader(e), buf)
	if err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", rel, err)
	}
	if uint64(n) != e.Size {
		out.Close()
		return fmt.Errorf("extract %s: %w", rel, io.ErrUnexpectedEOF)
	}
	return out.Close()
}

// copyUnpacked copies one sidecar file to dest, returning bytes copied.
func (a *Archive) copyUnpacked(rel, dest string, e *Entry, buf []byte) (uint64, error) {
	src, err := os.Open(a.unpackedPath(rel))
	if err != nil {
		return 0, err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entryFileMode(e.Executable))
	if err != nil {
		return 0, err
	}
	n, err := io.CopyBuffer(out, src, buf)
	if err != nil {
		out.Close()
		return 0, fmt.Errorf("extract %s: %w", rel, err)
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	return uint64(n), nil
}
