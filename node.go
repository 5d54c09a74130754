package asar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Entry describes a single file tracked by the archive header.
type Entry struct {
	// Size is the file's length in bytes.
	Size uint64

	// Offset is the file's position in the container body, relative to the
	// body offset. Only meaningful when Unpacked is false.
	Offset uint64

	// Unpacked marks content stored in the <archive>.unpacked sidecar tree
	// instead of the container body. Unpacked entries have no offset.
	Unpacked bool

	// Executable records the source file's executable permission bit.
	Executable bool

	// Integrity holds content digests, or nil for unpacked entries.
	Integrity *Integrity
}

// Node is one node of the archive's file tree: either a directory with
// ordered children or a single file entry.
//
// Directory children keep their insertion order. That order is load-bearing:
// it is the order the walker visits entries, which is the order the packer
// assigns offsets, so it must survive a JSON round trip untouched.
type Node struct {
	entry    *Entry
	names    []string
	children map[string]*Node
}

// NewDir returns an empty directory node.
func NewDir() *Node {
	return &Node{children: make(map[string]*Node)}
}

// NewFile returns a file node holding e.
func NewFile(e *Entry) *Node {
	return &Node{entry: e}
}

// IsDir reports whether n is a directory node.
func (n *Node) IsDir() bool {
	return n.entry == nil
}

// Entry returns the file entry, or nil for directory nodes.
func (n *Node) Entry() *Entry {
	return n.entry
}

// Names returns the directory's child names in insertion order.
func (n *Node) Names() []string {
	return append([]string(nil), n.names...)
}

// Child returns the named child of a directory node.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.children[name]
	return c, ok
}

// Add appends child under name, preserving insertion order.
func (n *Node) Add(name string, child *Node) error {
	if !n.IsDir() {
		return fmt.Errorf("asar: add %q: not a directory", name)
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("asar: invalid entry name %q", name)
	}
	if _, ok := n.children[name]; ok {
		return fmt.Errorf("asar: duplicate entry name %q", name)
	}
	n.names = append(n.names, name)
	n.children[name] = child
	return nil
}

// Lookup resolves a slash-separated relative path to a node.
func (n *Node) Lookup(path string) (*Node, bool) {
	if path == "" || path == "." {
		return n, true
	}
	cur := n
	for part := range strings.SplitSeq(path, "/") {
		if !cur.IsDir() {
			return nil, false
		}
		next, ok := cur.children[part]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// appendJSON serializes the node in the container's canonical textual form:
// compact JSON, directory children in insertion order, file attributes in
// pinned order, offsets as decimal strings.
func (n *Node) appendJSON(dst []byte) ([]byte, error) {
	if n.IsDir() {
		dst = append(dst, `{"files":{`...)
		for i, name := range n.names {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			dst, err = appendJSONString(dst, name)
			if err != nil {
				return nil, err
			}
			dst = append(dst, ':')
			dst, err = n.children[name].appendJSON(dst)
			if err != nil {
				return nil, err
			}
		}
		return append(dst, "}}"...), nil
	}

	e := n.entry
	dst = append(dst, `{"size":`...)
	dst = strconv.AppendUint(dst, e.Size, 10)
	if !e.Unpacked {
		dst = append(dst, `,"offset":"`...)
		dst = strconv.AppendUint(dst, e.Offset, 10)
		dst = append(dst, '"')
	}
	if e.Integrity != nil {
		rec := *e.Integrity
		if rec.Blocks == nil {
			rec.Blocks = []string{}
		}
		b, err := json.Marshal(&rec)
		if err != nil {
			return nil, err
		}
		dst = append(dst, `,"integrity":`...)
		dst = append(dst, b...)
	}
	if e.Executable {
		dst = append(dst, `,"executable":true`...)
	}
	if e.Unpacked {
		dst = append(dst, `,"unpacked":true`...)
	}
	return append(dst, '}'), nil
}

// appendJSONString appends s as a JSON string without HTML escaping,
// matching the reference tooling's output.
func appendJSONString(dst []byte, s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	b := buf.Bytes()
	// Encode appends a newline.
	return append(dst, b[:len(b)-1]...), nil
}

// decodeTree parses the header JSON into a tree, preserving the document's
// own key order for directory children.
func decodeTree(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	root, err := parseNode(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if !root.IsDir() {
		return nil, fmt.Errorf("%w: root is not a directory", ErrMalformedHeader)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after tree", ErrMalformedHeader)
	}
	return root, nil
}

// parseNode consumes one JSON object from dec and builds the node it
// describes. An object with a "files" key is a directory; anything else is
// a file entry and must satisfy the offset/unpacked invariant.
func parseNode(dec *json.Decoder) (*Node, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var (
		dir       *Node
		e         Entry
		hasSize   bool
		hasOffset bool
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		switch key {
		case "files":
			dir = NewDir()
			if err := expectDelim(dec, '{'); err != nil {
				return nil, err
			}
			for dec.More() {
				nameTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				name, ok := nameTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected token %v", nameTok)
				}
				child, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				if err := dir.Add(name, child); err != nil {
					return nil, err
				}
			}
			if err := expectDelim(dec, '}'); err != nil {
				return nil, err
			}
		case "size":
			num, err := decodeNumber(dec)
			if err != nil {
				return nil, err
			}
			e.Size = num
			hasSize = true
		case "offset":
			s, err := decodeString(dec)
			if err != nil {
				return nil, err
			}
			off, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad offset %q", s)
			}
			e.Offset = off
			hasOffset = true
		case "unpacked":
			b, err := decodeBool(dec)
			if err != nil {
				return nil, err
			}
			e.Unpacked = b
		case "executable":
			b, err := decodeBool(dec)
			if err != nil {
				return nil, err
			}
			e.Executable = b
		case "integrity":
			var rec Integrity
			if err := dec.Decode(&rec); err != nil {
				return nil, err
			}
			e.Integrity = &rec
		default:
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	if dir != nil {
		return dir, nil
	}
	if !hasSize {
		return nil, fmt.Errorf("file entry missing size")
	}
	if e.Unpacked == hasOffset {
		return nil, fmt.Errorf("file entry must have exactly one of offset or unpacked")
	}
	return NewFile(&e), nil
}

func decodeNumber(dec *json.Decoder) (uint64, error) {
	tok, err := dec.Token()
	if err != nil {
		return 0, err
	}
	num, ok := tok.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected number, got %v", tok)
	}
	v, err := strconv.ParseUint(num.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", num)
	}
	return v, nil
}

func decodeString(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %v", tok)
	}
	return s, nil
}

func decodeBool(dec *json.Decoder) (bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return false, err
	}
	b, ok := tok.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %v", tok)
	}
	return b, nil
}

// skipValue consumes one JSON value of any shape.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	for dec.More() {
		if d == '{' {
			if _, err := dec.Token(); err != nil {
				return err
			}
		}
		if err := skipValue(dec); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("unexpected token %v, want %v", tok, want)
	}
	return nil
}
