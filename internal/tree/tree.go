// Package tree assembles flat comment sets into ordered reply trees.
//
// All functions are pure: they take a flat slice loaded by the caller,
// build an adjacency map in one pass, never touch storage and keep no
// state between calls, so they are safe for concurrent use.
package tree

import (
	"sort"
	"time"
)

// Node is the minimal view of a comment the assembler needs. Both
// domain.Comment and domain.InlineComment implement it.
type Node interface {
	NodeID() string
	NodeParentID() *string
	NodeCreatedAt() time.Time
	NodeDeleted() bool
}

// Thread is one assembled node with its ordered replies. ReplyCount is the
// number of immediate replies after filtering, not the full subtree size.
type Thread[T Node] struct {
	Node       T
	ReplyCount int
	Replies    []*Thread[T]
}

// ChildrenMap builds the parent -> direct children adjacency in O(n).
// Input order does not matter; children are not yet sorted here.
func ChildrenMap[T Node](flat []T) map[string][]T {
	children := make(map[string][]T, len(flat))
	for _, c := range flat {
		if p := c.NodeParentID(); p != nil {
			children[*p] = append(children[*p], c)
		}
	}
	return children
}

// Assemble builds the ordered trees for every root in flat. A root is a
// node without a parent, or whose parent is absent from the loaded set.
// Root order follows the input order of the roots; reply order within each
// tree is created_at ascending. Soft-deleted nodes survive only while they
// still carry a non-empty subtree; deleted leaves are elided entirely.
func Assemble[T Node](flat []T) []*Thread[T] {
	children := ChildrenMap(flat)

	present := make(map[string]struct{}, len(flat))
	for _, c := range flat {
		present[c.NodeID()] = struct{}{}
	}

	var threads []*Thread[T]
	for _, c := range flat {
		p := c.NodeParentID()
		if p != nil {
			if _, ok := present[*p]; ok {
				continue
			}
		}
		if t := Expand(c, children); t != nil {
			threads = append(threads, t)
		}
	}
	return threads
}

// Expand builds the tree rooted at node from a pre-built children map.
// Returns nil when the node is deleted and nothing in its subtree
// survived, which removes deleted leaves from display while keeping
// deleted comments that still anchor replies.
func Expand[T Node](node T, children map[string][]T) *Thread[T] {
	direct := append([]T(nil), children[node.NodeID()]...)
	sort.SliceStable(direct, func(i, j int) bool {
		return direct[i].NodeCreatedAt().Before(direct[j].NodeCreatedAt())
	})

	replies := make([]*Thread[T], 0, len(direct))
	for _, child := range direct {
		if t := Expand(child, children); t != nil {
			replies = append(replies, t)
		}
	}

	if node.NodeDeleted() && len(replies) == 0 {
		return nil
	}

	return &Thread[T]{
		Node:       node,
		ReplyCount: len(replies),
		Replies:    replies,
	}
}

// CountDescendants counts the full subtree below id, not just immediate
// children. Used for selection group totals.
func CountDescendants[T Node](id string, children map[string][]T) int {
	count := 0
	for _, child := range children[id] {
		count += 1 + CountDescendants(child.NodeID(), children)
	}
	return count
}
