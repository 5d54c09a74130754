package asar

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallTree(t *testing.T) *Node {
	t.Helper()
	root := NewDir()
	mustAdd(t, root, "a.txt", NewFile(&Entry{Size: 2, Offset: 0}))
	sub := NewDir()
	mustAdd(t, root, "sub", sub)
	mustAdd(t, sub, "b.bin", NewFile(&Entry{Size: 3, Offset: 2}))
	return root
}

func TestEncodeHeaderPreamble(t *testing.T) {
	t.Parallel()

	header, bodyOffset, err := EncodeHeader(smallTree(t))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(header), preambleSize)

	headerDataSize := binary.LittleEndian.Uint32(header[0:4])
	jsonBinarySize := binary.LittleEndian.Uint32(header[4:8])
	jsonDataSize := binary.LittleEndian.Uint32(header[8:12])
	jsonStringSize := binary.LittleEndian.Uint32(header[12:16])

	assert.Equal(t, uint32(4), headerDataSize)
	assert.Equal(t, jsonDataSize+4, jsonBinarySize)
	assert.Zero(t, jsonDataSize%4)
	assert.LessOrEqual(t, jsonStringSize, jsonDataSize)
	assert.Equal(t, int64(preambleSize)+int64(jsonDataSize), bodyOffset)
	assert.Len(t, header, preambleSize+int(jsonDataSize))

	// Padding bytes are NUL.
	for _, b := range header[preambleSize+int(jsonStringSize):] {
		assert.Zero(t, b)
	}
}

func TestHeaderPaddingInvariant(t *testing.T) {
	t.Parallel()

	// Vary the JSON length one byte at a time via the file name.
	for nameLen := 1; nameLen <= 8; nameLen++ {
		root := NewDir()
		name := strings.Repeat("x", nameLen)
		mustAdd(t, root, name, NewFile(&Entry{Size: 1, Offset: 0}))

		header, _, err := EncodeHeader(root)
		require.NoError(t, err)

		jsonDataSize := binary.LittleEndian.Uint32(header[8:12])
		jsonStringSize := binary.LittleEndian.Uint32(header[12:16])
		padding := jsonDataSize - jsonStringSize
		assert.Less(t, padding, uint32(4))
		assert.Zero(t, (jsonStringSize+padding)%4)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	header, bodyOffset, err := EncodeHeader(smallTree(t))
	require.NoError(t, err)

	root, gotOffset, err := DecodeHeader(bytes.NewReader(header))
	require.NoError(t, err)
	assert.Equal(t, bodyOffset, gotOffset)

	paths, entries := collectEntries(t, root, false)
	assert.Equal(t, []string{"a.txt", "sub/b.bin"}, paths)
	assert.Equal(t, uint64(2), entries[0].Size)
	assert.Equal(t, uint64(0), entries[0].Offset)
	assert.Equal(t, uint64(3), entries[1].Size)
	assert.Equal(t, uint64(2), entries[1].Offset)
}

func TestEncodeHeaderDeterministic(t *testing.T) {
	t.Parallel()

	h1, _, err := EncodeHeader(smallTree(t))
	require.NoError(t, err)
	h2, _, err := EncodeHeader(smallTree(t))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestDecodeHeaderLeavesReaderAtBody(t *testing.T) {
	t.Parallel()

	header, _, err := EncodeHeader(smallTree(t))
	require.NoError(t, err)
	body := []byte("hi123")
	r := bytes.NewReader(append(append([]byte(nil), header...), body...))

	_, _, err = DecodeHeader(r)
	require.NoError(t, err)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, rest)
}

func TestDecodeHeaderMalformed(t *testing.T) {
	t.Parallel()

	valid, _, err := EncodeHeader(smallTree(t))
	require.NoError(t, err)

	badPreambleValue := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badPreambleValue[0:4], 5)

	badBinarySize := append([]byte(nil), valid...)
	jsonDataSize := binary.LittleEndian.Uint32(badBinarySize[8:12])
	binary.LittleEndian.PutUint32(badBinarySize[4:8], jsonDataSize+8)

	badStringSize := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badStringSize[12:16], jsonDataSize+1)

	// Structurally consistent preamble whose jsonDataSize carries one full
	// alignment block of excess padding.
	excessJSON := []byte(`{"files":{}}`)
	excessPadding := make([]byte, preambleSize)
	binary.LittleEndian.PutUint32(excessPadding[0:4], headerDataSizeValue)
	binary.LittleEndian.PutUint32(excessPadding[4:8], uint32(len(excessJSON))+headerAlign+headerDataSizeValue)
	binary.LittleEndian.PutUint32(excessPadding[8:12], uint32(len(excessJSON))+headerAlign)
	binary.LittleEndian.PutUint32(excessPadding[12:16], uint32(len(excessJSON)))
	excessPadding = append(excessPadding, excessJSON...)
	excessPadding = append(excessPadding, make([]byte, headerAlign)...)

	badJSON, _ := frameHeader([]byte(`{"files":`))
	badUTF8, _ := frameHeader([]byte("\xff\xfe\xfd\xfc"))
	rootIsFile, _ := frameHeader([]byte(`{"size":1,"offset":"0"}`))

	tests := []struct {
		name  string
		input []byte
	}{
		{"truncated preamble", valid[:7]},
		{"truncated header", valid[:preambleSize+2]},
		{"headerDataSize not 4", badPreambleValue},
		{"jsonBinarySize mismatch", badBinarySize},
		{"jsonStringSize exceeds jsonDataSize", badStringSize},
		{"jsonDataSize carries excess padding", excessPadding},
		{"undecodable JSON", badJSON},
		{"invalid UTF-8", badUTF8},
		{"root is not a directory", rootIsFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := DecodeHeader(bytes.NewReader(tt.input))
			require.ErrorIs(t, err, ErrMalformedHeader)
		})
	}
}
