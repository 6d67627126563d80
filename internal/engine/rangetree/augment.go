package rangetree

import "github.com/google/uuid"

// Augment defines the aggregate carried by every node.
//
// Combine must be associative with Zero as its identity:
//
//	Combine(Combine(a, b), c) == Combine(a, Combine(b, c))
//	Combine(Zero(), a) == a == Combine(a, Zero())
type Augment[A any] interface {
	// Zero returns the aggregate of empty content.
	Zero() A

	// Measure computes the aggregate of a single leaf. It may read the leaf's
	// bytes through Node.Materialize.
	Measure(leaf *Node[A]) A

	// Combine merges the aggregates of two adjacent subtrees, left first.
	Combine(left, right A) A
}

// Observer receives leaf lifecycle notifications. An Augment that also
// implements Observer is notified automatically. Every Created is matched
// by exactly one Destroyed. The empty leaf standing in for an empty tree is
// not reported.
type Observer[A any] interface {
	// Created is called after a leaf is created and measured.
	Created(leaf *Node[A])

	// Invalidated is called before a leaf's slice or fragment changes, so
	// derived state cached outside the tree can be dropped.
	Invalidated(leaf *Node[A])

	// Destroyed is called before a leaf is discarded.
	Destroyed(leaf *Node[A])
}

// None is an Augment that carries no aggregate.
type None struct{}

func (None) Zero() struct{}                      { return struct{}{} }
func (None) Measure(*Node[struct{}]) struct{}    { return struct{}{} }
func (None) Combine(struct{}, struct{}) struct{} { return struct{}{} }

// FuseGroup tags leaves that came from the same edit. Fuse never merges
// leaves with different groups, which keeps a tagged span a separate unit.
type FuseGroup uuid.UUID

// NoGroup is the unset group.
var NoGroup FuseGroup

// NewFuseGroup returns a fresh group distinct from every other.
func NewFuseGroup() FuseGroup {
	return FuseGroup(uuid.New())
}

// String returns the group identifier.
func (g FuseGroup) String() string {
	if g == NoGroup {
		return "none"
	}
	return uuid.UUID(g).String()
}
