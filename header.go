package asar

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/opencontainers/go-digest"
)

const (
	// preambleSize is the fixed numeric preamble: four little-endian
	// uint32 fields (headerDataSize, jsonBinarySize, jsonDataSize,
	// jsonStringSize).
	preambleSize = 16

	// headerDataSizeValue is the pinned value of the first preamble field.
	headerDataSizeValue = 4

	// headerAlign is the boundary the JSON text is NUL-padded to. File
	// contents begin at the first aligned byte after the JSON.
	headerAlign = 4

	// maxHeaderSize bounds the JSON header a reader will load. Prevents a
	// corrupt length field from driving a giant allocation.
	maxHeaderSize = 1 << 30
)

// DecodeHeader reads a container's preamble and JSON tree from r, consuming
// exactly the header region including alignment padding. It returns the
// parsed tree and the body offset: the container position where file
// contents begin. All entry offsets in the tree are relative to it.
//
// Violations of the preamble invariants, undecodable JSON, and invalid
// UTF-8 all report ErrMalformedHeader.
func DecodeHeader(r io.Reader) (*Node, int64, error) {
	root, _, bodyOffset, err := decodeHeader(r)
	return root, bodyOffset, err
}

func decodeHeader(r io.Reader) (*Node, []byte, int64, error) {
	var pre [preambleSize]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, 0, fmt.Errorf("%w: truncated preamble", ErrMalformedHeader)
		}
		return nil, nil, 0, fmt.Errorf("read preamble: %w", err)
	}

	headerDataSize := binary.LittleEndian.Uint32(pre[0:4])
	jsonBinarySize := binary.LittleEndian.Uint32(pre[4:8])
	jsonDataSize := binary.LittleEndian.Uint32(pre[8:12])
	jsonStringSize := binary.LittleEndian.Uint32(pre[12:16])

	switch {
	case headerDataSize != headerDataSizeValue:
		return nil, nil, 0, fmt.Errorf("%w: headerDataSize %d, want %d",
			ErrMalformedHeader, headerDataSize, headerDataSizeValue)
	case jsonBinarySize != jsonDataSize+headerDataSizeValue:
		return nil, nil, 0, fmt.Errorf("%w: jsonBinarySize %d does not match jsonDataSize %d",
			ErrMalformedHeader, jsonBinarySize, jsonDataSize)
	case jsonStringSize > jsonDataSize:
		return nil, nil, 0, fmt.Errorf("%w: jsonStringSize %d exceeds jsonDataSize %d",
			ErrMalformedHeader, jsonStringSize, jsonDataSize)
	case jsonDataSize > maxHeaderSize:
		return nil, nil, 0, fmt.Errorf("%w: header size %d exceeds limit", ErrMalformedHeader, jsonDataSize)
	case jsonDataSize != jsonStringSize+(headerAlign-jsonStringSize%headerAlign)%headerAlign:
		return nil, nil, 0, fmt.Errorf("%w: jsonDataSize %d is not jsonStringSize %d rounded up to a %d-byte boundary",
			ErrMalformedHeader, jsonDataSize, jsonStringSize, headerAlign)
	}

	region := make([]byte, jsonDataSize)
	if _, err := io.ReadFull(r, region); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, 0, fmt.Errorf("%w: truncated header", ErrMalformedHeader)
		}
		return nil, nil, 0, fmt.Errorf("read header: %w", err)
	}

	jsonBytes := region[:jsonStringSize]
	if !utf8.Valid(jsonBytes) {
		return nil, nil, 0, fmt.Errorf("%w: header is not valid UTF-8", ErrMalformedHeader)
	}
	root, err := decodeTree(jsonBytes)
	if err != nil {
		return nil, nil, 0, err
	}

	return root, jsonBytes, int64(preambleSize) + int64(jsonDataSize), nil
}

// EncodeHeader serializes the tree to header bytes: the 16-byte preamble
// followed by the canonical JSON text, NUL-padded to a 4-byte boundary.
// It also returns the body offset implied by the header. Pure function,
// no I/O.
func EncodeHeader(root *Node) ([]byte, int64, error) {
	jsonBytes, err := encodeTreeJSON(root)
	if err != nil {
		return nil, 0, err
	}
	if len(jsonBytes) > maxHeaderSize {
		return nil, 0, fmt.Errorf("encode header: %w", ErrSizeOverflow)
	}
	header, bodyOffset := frameHeader(jsonBytes)
	return header, bodyOffset, nil
}

// encodeTreeJSON produces the canonical (unpadded) JSON header text.
func encodeTreeJSON(root *Node) ([]byte, error) {
	if root == nil || !root.IsDir() {
		return nil, fmt.Errorf("asar: header root must be a directory")
	}
	return root.appendJSON(nil)
}

// frameHeader wraps the JSON text with the preamble and alignment padding.
func frameHeader(jsonBytes []byte) ([]byte, int64) {
	jsonStringSize := len(jsonBytes)
	padding := (headerAlign - jsonStringSize%headerAlign) % headerAlign
	jsonDataSize := jsonStringSize + padding
	jsonBinarySize := jsonDataSize + headerDataSizeValue

	header := make([]byte, preambleSize, preambleSize+jsonDataSize)
	binary.LittleEndian.PutUint32(header[0:4], headerDataSizeValue)
	binary.LittleEndian.PutUint32(header[4:8], uint32(jsonBinarySize))
	binary.LittleEndian.PutUint32(header[8:12], uint32(jsonDataSize))
	binary.LittleEndian.PutUint32(header[12:16], uint32(jsonStringSize))
	header = append(header, jsonBytes...)
	header = append(header, make([]byte, padding)...)

	return header, int64(preambleSize + jsonDataSize)
}

// headerFingerprint is the SHA-256 hex digest of the unpadded JSON text.
// External collaborators use it to detect structural changes to an archive.
func headerFingerprint(jsonBytes []byte) string {
	return digest.SHA256.FromBytes(jsonBytes).Encoded()
}
