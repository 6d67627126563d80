// Package rangetree provides the mutable byte buffer at the heart of the
// editor: a depth-balanced binary tree whose leaves each reference a slice of
// a shared, reference-counted fragment.
//
// Internal nodes store only the total length of their subtree and a
// client-defined aggregate combined from their children. Leaves are threaded
// in a doubly linked list so sequential reads never walk the tree.
//
// Key features:
//   - O(log n) insert, delete and offset lookup
//   - Copy shares fragments instead of duplicating bytes
//   - File-backed leaves page through a filecache.Cache on demand
//   - Adjacent small leaves are fused back together after edits
//   - Aggregates stay correct after every mutation
//
// Basic usage:
//
//	t := rangetree.FromBytes[struct{}](rangetree.None{}, []byte("hello world"))
//	t.Delete(5, 1) // "helloworld"
//	t.InsertBytes(5, []byte(" there "), rangetree.NoGroup) // "hello there world"
//	text := t.Raw(0, t.Len())
//
// A Tree has a single owner; it is not safe for concurrent use.
package rangetree
