/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	id, err := tree.Lookup("Tiger")
	require.NoError(t, err)
	assert.Equal(t, "Tiger", tree.Name(id))

	_, err = tree.Lookup("Wolf")
	require.ErrorIs(t, err, ErrNotFound)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "species", notFound.Kind)
	assert.Equal(t, "Wolf", notFound.Name)

	// Internal clades are not species.
	_, err = tree.Lookup("Dogs")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = tree.Clade("Dogs")
	require.NoError(t, err)

	_, err = tree.Clade("Fungi")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLCA(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	lcaOf := func(a, b string) string {
		t.Helper()

		left, err := tree.Clade(a)
		require.NoError(t, err)

		right, err := tree.Clade(b)
		require.NoError(t, err)

		return tree.Name(tree.LCA(left, right))
	}

	assert.Equal(t, "Dogs", lcaOf("Husky", "Corgi"))
	assert.Equal(t, "Cats", lcaOf("Lion", "House Cat"))
	assert.Equal(t, "Primates", lcaOf("Chimp", "Gorilla"))
	assert.Equal(t, "Mammals", lcaOf("Husky", "Lion"))
	assert.Equal(t, "Mammals", lcaOf("Bulldog", "Gorilla"))

	// A node is its own ancestor.
	assert.Equal(t, "Tiger", lcaOf("Tiger", "Tiger"))
	assert.Equal(t, "Cats", lcaOf("Cats", "Tiger"))
	assert.Equal(t, "Mammals", lcaOf("Mammals", "Chimp"))
}

func TestLCASymmetric(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	leaves := tree.Leaves()
	for _, a := range leaves {
		for _, b := range leaves {
			assert.Equal(t, tree.LCA(a, b), tree.LCA(b, a),
				"lca(%s, %s)", tree.Name(a), tree.Name(b))
		}

		assert.Equal(t, a, tree.LCA(a, a), "lca(%s, %s)", tree.Name(a), tree.Name(a))
	}
}

func TestIsAncestor(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	dogs, err := tree.Clade("Dogs")
	require.NoError(t, err)

	husky, err := tree.Lookup("Husky")
	require.NoError(t, err)

	lion, err := tree.Lookup("Lion")
	require.NoError(t, err)

	assert.True(t, tree.IsAncestor(tree.Root(), husky))
	assert.True(t, tree.IsAncestor(dogs, husky))
	assert.True(t, tree.IsAncestor(husky, husky))
	assert.False(t, tree.IsAncestor(dogs, lion))
	assert.False(t, tree.IsAncestor(husky, dogs))
}

func TestSubtree(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	cats, err := tree.Subtree("Cats")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lion", "Tiger", "House Cat"}, tree.Names(cats))

	all, err := tree.Subtree("Mammals")
	require.NoError(t, err)
	assert.Len(t, all, 8)

	// The subtree of a species is the species itself.
	single, err := tree.Subtree("Gorilla")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gorilla"}, tree.Names(single))

	_, err = tree.Subtree("Reptiles")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidateSpecies(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	missingFromTree, missingFromList := tree.ValidateSpecies(tree.Species())
	assert.Empty(t, missingFromTree)
	assert.Empty(t, missingFromList)

	missingFromTree, missingFromList = tree.ValidateSpecies([]string{
		"Husky", "Corgi", "Bulldog", "Lion", "Tiger", "House Cat", "Chimp",
		"Wolverine",
		"Dogs",
	})
	assert.Equal(t, []string{"Dogs", "Wolverine"}, missingFromTree)
	assert.Equal(t, []string{"Gorilla"}, missingFromList)
}
