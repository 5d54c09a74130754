package asar

import "iter"

// Walk returns a lazy depth-first, pre-order sequence of (path, entry) pairs
// for every file reachable from root. Directory children are visited in
// their stored insertion order; this is the same order the packer assigns
// offsets, so adjacent packed entries are contiguous in the container body.
//
// When skipUnpacked is true, entries stored in the sidecar tree are omitted.
// The sequence is restartable: ranging over it again yields the same pairs.
func Walk(root *Node, skipUnpacked bool) iter.Seq2[string, *Entry] {
	return func(yield func(string, *Entry) bool) {
		type frame struct {
			path string
			node *Node
		}
		// Explicit stack keeps memory bounded for pathological nesting.
		stack := []frame{{"", root}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !f.node.IsDir() {
				e := f.node.entry
				if skipUnpacked && e.Unpacked {
					continue
				}
				if !yield(f.path, e) {
					return
				}
				continue
			}
			for i := len(f.node.names) - 1; i >= 0; i-- {
				name := f.node.names[i]
				stack = append(stack, frame{joinEntryPath(f.path, name), f.node.children[name]})
			}
		}
	}
}

// walkNodes yields every node (directories included) in the same pre-order.
// Used internally to materialize the directory skeleton during extraction.
func walkNodes(root *Node) iter.Seq2[string, *Node] {
	return func(yield func(string, *Node) bool) {
		type frame struct {
			path string
			node *Node
		}
		stack := []frame{{"", root}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(f.path, f.node) {
				return
			}
			if !f.node.IsDir() {
				continue
			}
			for i := len(f.node.names) - 1; i >= 0; i-- {
				name := f.node.names[i]
				stack = append(stack, frame{joinEntryPath(f.path, name), f.node.children[name]})
			}
		}
	}
}

func joinEntryPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
