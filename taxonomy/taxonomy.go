/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package taxonomy builds phylogenetic trees from NCBI Common Tree exports
// and answers the questions a Metazooa-style guessing game asks of them:
// lowest common ancestors, clade membership, and the guess that minimizes
// the worst-case number of surviving candidates.
package taxonomy

import (
	"slices"
	"sort"
)

// NodeID addresses a node inside a Tree. IDs are assigned in the order nodes
// are read from the source and are only meaningful for the Tree that issued
// them.
type NodeID int32

// NoNode is the null NodeID, used for the root's parent and for "no clade".
const NoNode NodeID = -1

type node struct {
	name     string
	rank     string
	taxid    int64
	parent   NodeID
	children []NodeID
}

// Tree is an immutable taxonomy. All nodes live in a single arena indexed by
// NodeID, and every node carries its precomputed root-to-node ancestor chain,
// so LCA queries walk two slices instead of chasing pointers. A Tree is safe
// for concurrent readers once built.
type Tree struct {
	nodes  []node
	byName map[string]NodeID
	leaves []NodeID
	chains [][]NodeID
}

// Len returns the total number of nodes, internal clades included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the root node of the tree.
func (t *Tree) Root() NodeID {
	return 0
}

// Name returns the canonical name of a node.
func (t *Tree) Name(id NodeID) string {
	return t.nodes[id].name
}

// Rank returns the taxonomic rank of a node, or "" when the source carried
// no rank information.
func (t *Tree) Rank(id NodeID) string {
	return t.nodes[id].rank
}

// TaxID returns the NCBI taxonomy ID of a node, or 0 when the source carried
// no IDs. Text exports never do.
func (t *Tree) TaxID(id NodeID) int64 {
	return t.nodes[id].taxid
}

// Parent returns the parent of a node, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.nodes[id].parent
}

// Children returns the direct children of a node in source order. The
// returned slice is shared and must not be modified.
func (t *Tree) Children(id NodeID) []NodeID {
	return t.nodes[id].children
}

// IsLeaf reports whether a node is a species leaf.
func (t *Tree) IsLeaf(id NodeID) bool {
	return len(t.nodes[id].children) == 0
}

// Depth returns the number of edges between a node and the root.
func (t *Tree) Depth(id NodeID) int {
	return len(t.chains[id]) - 1
}

// Leaves returns every species leaf in source order. The returned slice is
// shared and must not be modified.
func (t *Tree) Leaves() []NodeID {
	return t.leaves
}

// Species returns the names of every leaf, sorted lexicographically.
func (t *Tree) Species() []string {
	names := make([]string, 0, len(t.leaves))
	for _, id := range t.leaves {
		names = append(names, t.nodes[id].name)
	}
	sort.Strings(names)

	return names
}

// Lookup resolves a species name to its leaf node. Names that are absent, or
// that name an internal clade rather than a species, return a NotFoundError.
func (t *Tree) Lookup(name string) (NodeID, error) {
	id, ok := t.byName[name]
	if !ok || !t.IsLeaf(id) {
		return NoNode, &NotFoundError{Kind: "species", Name: name}
	}

	return id, nil
}

// Clade resolves any node name, internal or leaf.
func (t *Tree) Clade(name string) (NodeID, error) {
	id, ok := t.byName[name]
	if !ok {
		return NoNode, &NotFoundError{Kind: "clade", Name: name}
	}

	return id, nil
}

// LCA returns the lowest common ancestor of two nodes. A node is its own
// ancestor, so LCA(x, x) == x and LCA of a node with its descendant is the
// node itself.
func (t *Tree) LCA(a, b NodeID) NodeID {
	ca, cb := t.chains[a], t.chains[b]

	max := len(ca)
	if len(cb) < max {
		max = len(cb)
	}

	last := ca[0]
	for i := 1; i < max; i++ {
		if ca[i] != cb[i] {
			break
		}

		last = ca[i]
	}

	return last
}

// IsAncestor reports whether ancestor lies on the root chain of id. Every
// node is an ancestor of itself.
func (t *Tree) IsAncestor(ancestor, id NodeID) bool {
	chain := t.chains[id]
	depth := len(t.chains[ancestor]) - 1
	if depth >= len(chain) {
		return false
	}

	return chain[depth] == ancestor
}

// Subtree returns every species leaf underneath the named clade, in source
// order. A species name yields a single-element result.
func (t *Tree) Subtree(clade string) ([]NodeID, error) {
	root, err := t.Clade(clade)
	if err != nil {
		return nil, err
	}

	return t.subtree(root), nil
}

func (t *Tree) subtree(root NodeID) []NodeID {
	var found []NodeID

	stack := []NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := t.nodes[id].children
		if len(children) == 0 {
			found = append(found, id)

			continue
		}

		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	slices.Sort(found)

	return found
}

// ValidateSpecies checks a species list against the tree's leaves and returns
// the names missing from the tree and the leaves missing from the list. Empty
// results mean the two agree exactly.
func (t *Tree) ValidateSpecies(species []string) (missingFromTree, missingFromList []string) {
	listed := make(map[string]struct{}, len(species))

	for _, name := range species {
		listed[name] = struct{}{}

		if id, ok := t.byName[name]; !ok || !t.IsLeaf(id) {
			missingFromTree = append(missingFromTree, name)
		}
	}

	for _, id := range t.leaves {
		if _, ok := listed[t.nodes[id].name]; !ok {
			missingFromList = append(missingFromList, t.nodes[id].name)
		}
	}

	sort.Strings(missingFromTree)
	sort.Strings(missingFromList)

	return missingFromTree, missingFromList
}

// Names maps a set of node IDs to their names, preserving order.
func (t *Tree) Names(ids []NodeID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, t.nodes[id].name)
	}

	return names
}

// treeBuilder accumulates nodes during parsing and freezes them into a Tree.
type treeBuilder struct {
	nodes  []node
	byName map[string]NodeID
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{
		byName: make(map[string]NodeID),
	}
}

// add appends a node under parent (NoNode for the root) and indexes its name.
// Duplicate names are rejected so that name-based lookups stay unambiguous.
func (b *treeBuilder) add(name, rank string, parent NodeID) (NodeID, bool) {
	if _, exists := b.byName[name]; exists {
		return NoNode, false
	}

	id := NodeID(len(b.nodes))

	b.nodes = append(b.nodes, node{
		name:   name,
		rank:   rank,
		parent: parent,
	})
	b.byName[name] = id

	if parent != NoNode {
		b.nodes[parent].children = append(b.nodes[parent].children, id)
	}

	return id, true
}

func (b *treeBuilder) has(name string) bool {
	_, ok := b.byName[name]

	return ok
}

// finish computes leaf and ancestor-chain indices and returns the immutable
// Tree. Chains are built in arena order, which guarantees a node's parent
// chain already exists when the node's own chain is assembled.
func (b *treeBuilder) finish() *Tree {
	t := &Tree{
		nodes:  b.nodes,
		byName: b.byName,
		chains: make([][]NodeID, len(b.nodes)),
	}

	for i := range t.nodes {
		id := NodeID(i)

		parent := t.nodes[i].parent
		if parent == NoNode {
			t.chains[i] = []NodeID{id}
		} else {
			chain := make([]NodeID, 0, len(t.chains[parent])+1)
			chain = append(chain, t.chains[parent]...)
			chain = append(chain, id)
			t.chains[i] = chain
		}

		if len(t.nodes[i].children) == 0 {
			t.leaves = append(t.leaves, id)
		}
	}

	return t
}
