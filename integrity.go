package asar

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/opencontainers/go-digest"
)

// DefaultBlockSize is the chunk size used for block-level digests.
const DefaultBlockSize = 4 * 1024 * 1024

// integrityAlgorithm is the only digest algorithm the format records.
const integrityAlgorithm = "SHA256"

// Integrity holds content digests for one archived file: a whole-file
// SHA-256 plus one SHA-256 per fixed-size block. Block digests let a
// consumer verify a range without hashing the entire file.
type Integrity struct {
	Algorithm string   `json:"algorithm"`
	Hash      string   `json:"hash"`
	BlockSize uint32   `json:"blockSize"`
	Blocks    []string `json:"blocks"`
}

// HashReader streams r to completion, producing an integrity record and the
// number of bytes consumed. Memory use is bounded by blockSize regardless of
// input length. A blockSize <= 0 selects DefaultBlockSize.
func HashReader(r io.Reader, blockSize int) (*Integrity, uint64, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if int64(blockSize) > math.MaxUint32 {
		return nil, 0, fmt.Errorf("asar: block size %d out of range", blockSize)
	}

	whole := digest.SHA256.Digester()
	blocks := []string{}
	buf := make([]byte, blockSize)
	var total uint64
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			whole.Hash().Write(buf[:n])
			blocks = append(blocks, digest.SHA256.FromBytes(buf[:n]).Encoded())
			total += uint64(n)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}

	return &Integrity{
		Algorithm: integrityAlgorithm,
		Hash:      whole.Digest().Encoded(),
		BlockSize: uint32(blockSize),
		Blocks:    blocks,
	}, total, nil
}

// HashFile computes the integrity record for the file at path. The file is
// read in blockSize chunks; a file that vanishes or shrinks mid-read
// surfaces the underlying I/O error.
func HashFile(path string, blockSize int) (*Integrity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, _, err := HashReader(f, blockSize)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	return rec, nil
}

// verifyReader recomputes want from r and reports ErrHashMismatch when the
// content no longer matches.
func verifyReader(r io.Reader, want *Integrity) error {
	got, _, err := HashReader(r, int(want.BlockSize))
	if err != nil {
		return err
	}
	if got.Hash != want.Hash {
		return fmt.Errorf("%w: have sha256:%s, want sha256:%s", ErrHashMismatch, got.Hash, want.Hash)
	}
	if len(got.Blocks) != len(want.Blocks) {
		return fmt.Errorf("%w: block count changed", ErrHashMismatch)
	}
	for i := range got.Blocks {
		if got.Blocks[i] != want.Blocks[i] {
			return fmt.Errorf("%w: block %d", ErrHashMismatch, i)
		}
	}
	return nil
}
