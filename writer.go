package asar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
)

// Pack builds a fresh container at outputPath from the directory tree
// rooted at sourceDir and returns the archive's header fingerprint: the
// SHA-256 hex digest of the unpadded header JSON.
//
// The source tree is walked depth-first with children in lexicographic
// order, so packing the same unchanged tree twice yields byte-identical
// archives. Regular files become packed entries with contiguous offsets
// and integrity records; paths named by PackWithUnpacked are written to
// the <outputPath>.unpacked sidecar tree instead. Symbolic links and
// other irregular files are skipped.
//
// Packing is not transactional: a failed or interrupted pack leaves the
// partial container (and any sidecar files already written) on disk for
// the caller to inspect or remove. A pre-existing <outputPath>.unpacked
// tree is never deleted. Callers needing atomicity should pack to a
// temporary path and rename on success.
//
// The context is checked between files; a long stream of one huge file is
// not interruptible.
func Pack(ctx context.Context, sourceDir, outputPath string, opts ...PackOption) (string, error) {
	cfg := packConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blockSize <= 0 {
		cfg.blockSize = DefaultBlockSize
	}
	if int64(cfg.blockSize) > math.MaxUint32 {
		return "", fmt.Errorf("asar: block size %d out of range", cfg.blockSize)
	}

	p := &packer{cfg: cfg}
	p.log().Info("packing archive", "dir", sourceDir, "output", outputPath)

	root, sources, err := p.buildTree(ctx, sourceDir)
	if err != nil {
		return "", err
	}

	jsonBytes, err := encodeTreeJSON(root)
	if err != nil {
		return "", err
	}
	if len(jsonBytes) > maxHeaderSize {
		return "", fmt.Errorf("encode header: %w", ErrSizeOverflow)
	}
	header, _ := frameHeader(jsonBytes)

	if err := p.writeContainer(ctx, outputPath, header, sources); err != nil {
		return "", err
	}

	p.log().Debug("archive written", "file_count", len(sources), "header_bytes", len(header))
	return headerFingerprint(jsonBytes), nil
}

// packer holds state for archive creation.
type packer struct {
	cfg packConfig
}

// log returns the logger, falling back to a discard logger if nil.
func (p *packer) log() *slog.Logger {
	if p.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.cfg.logger
}

// reportProgress sends a progress event if a callback is configured.
func (p *packer) reportProgress(stage ProgressStage, path string, bytesDone uint64, filesDone int) {
	if p.cfg.progress == nil {
		return
	}
	p.cfg.progress(ProgressEvent{
		Stage:     stage,
		Path:      path,
		BytesDone: bytesDone,
		FilesDone: filesDone,
	})
}

// packedSource records where one entry's bytes come from on disk.
type packedSource struct {
	rel    string
	fsPath string
	entry  *Entry
}

// buildTree walks sourceDir and produces a fresh header tree plus the
// ordered list of files whose contents the container (or sidecar) needs.
// Offsets are assigned in visit order, which is exactly the order Walk
// replays later, keeping packed entries contiguous.
func (p *packer) buildTree(ctx context.Context, sourceDir string) (*Node, []packedSource, error) {
	type frame struct {
		parent *Node
		name   string
		fsPath string
		rel    string
	}

	root := NewDir()
	p.reportProgress(StageEnumerating, "", 0, 0)

	dirents, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, nil, err
	}
	// Explicit stack instead of recursion; depth is unbounded.
	stack := make([]frame, 0, len(dirents))
	push := func(parent *Node, fsDir, relDir string, dirents []os.DirEntry) {
		for i := len(dirents) - 1; i >= 0; i-- {
			name := dirents[i].Name()
			stack = append(stack, frame{
				parent: parent,
				name:   name,
				fsPath: filepath.Join(fsDir, name),
				rel:    joinEntryPath(relDir, name),
			})
		}
	}
	push(root, sourceDir, "", dirents)

	var (
		sources []packedSource
		running uint64
		hashed  uint64
	)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		info, err := os.Lstat(f.fsPath)
		if err != nil {
			return nil, nil, err
		}

		switch {
		case info.IsDir():
			node := NewDir()
			if err := f.parent.Add(f.name, node); err != nil {
				return nil, nil, err
			}
			children, err := os.ReadDir(f.fsPath)
			if err != nil {
				return nil, nil, err
			}
			push(node, f.fsPath, f.rel, children)

		case info.Mode().IsRegular():
			e := &Entry{
				Size:       uint64(info.Size()),
				Executable: entryIsExecutable(info),
			}
			if _, ok := p.cfg.unpacked[f.rel]; ok {
				e.Unpacked = true
			} else {
				rec, total, err := p.hashSource(f.fsPath)
				if err != nil {
					return nil, nil, err
				}
				if total != e.Size {
					return nil, nil, fmt.Errorf("pack %s: file changed during packing", f.rel)
				}
				if e.Size > math.MaxUint64-running {
					return nil, nil, ErrSizeOverflow
				}
				e.Offset = running
				e.Integrity = rec
				running += e.Size
				hashed += e.Size
				p.reportProgress(StageHashing, f.rel, hashed, len(sources)+1)
			}
			if err := f.parent.Add(f.name, NewFile(e)); err != nil {
				return nil, nil, err
			}
			sources = append(sources, packedSource{rel: f.rel, fsPath: f.fsPath, entry: e})

		default:
			p.log().Debug("skipping irregular file", "path", f.rel, "mode", info.Mode().String())
		}
	}
	return root, sources, nil
}

// hashSource computes the integrity record for one source file, reporting
// how many bytes were hashed.
func (p *packer) hashSource(fsPath string) (*Integrity, uint64, error) {
	f, err := os.Open(fsPath)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return HashReader(f, p.cfg.blockSize)
}

// writeContainer writes the header and streams file contents in offset
// order. On error the partially written container and sidecar stay on
// disk; in particular a sidecar tree that existed before the pack started
// is never removed.
func (p *packer) writeContainer(ctx context.Context, outputPath string, header []byte, sources []packedSource) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	sidecar := outputPath + ".unpacked"

	if _, err := out.Write(header); err != nil {
		return err
	}

	buf := make([]byte, p.cfg.blockSize)
	var bytesDone uint64
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if src.entry.Unpacked {
			if err := p.writeSidecar(sidecar, src, buf); err != nil {
				return err
			}
		} else {
			if err := streamPacked(out, src, buf); err != nil {
				return err
			}
			bytesDone += src.entry.Size
		}
		p.reportProgress(StageWriting, src.rel, bytesDone, i+1)
	}

	return out.Close()
}

// streamPacked copies exactly entry.Size bytes of one source file into the
// container body. A source that shrank since the tree was built surfaces
// as an I/O error; the header's offsets would no longer be trustworthy.
func streamPacked(out *os.File, src packedSource, buf []byte) error {
	f, err := os.Open(src.fsPath)
	if err != nil {
		return err
	}
	defer f.Close()

	want := int64(src.entry.Size)
	n, err := io.CopyBuffer(out, io.LimitReader(f, want), buf)
	if err != nil {
		return fmt.Errorf("write %s: %w", src.rel, err)
	}
	if n != want {
		return fmt.Errorf("pack %s: file changed during packing: %w", src.rel, io.ErrUnexpectedEOF)
	}
	return nil
}

// writeSidecar copies one unpacked entry into the sidecar tree.
func (p *packer) writeSidecar(sidecar string, src packedSource, buf []byte) error {
	dest := filepath.Join(sidecar, filepath.FromSlash(src.rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Open(src.fsPath)
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entryFileMode(src.entry.Executable))
	if err != nil {
		return err
	}
	if _, err := io.CopyBuffer(out, f, buf); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", src.rel, err)
	}
	return out.Close()
}
