/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taxonomy

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bucketNames flattens a partition into clade name -> sorted member names,
// which keeps test expectations readable.
func bucketNames(t *testing.T, tree *Tree, buckets map[NodeID][]NodeID) map[string][]string {
	t.Helper()

	named := make(map[string][]string, len(buckets))

	for clade, members := range buckets {
		names := tree.Names(members)
		sort.Strings(names)
		named[tree.Name(clade)] = names
	}

	return named
}

func TestBestGuessWorkedExample(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)
	candidates := tree.Leaves()

	guess, err := BestGuess(tree, candidates, nil)
	require.NoError(t, err)

	// Any dog or cat guarantees at most five survivors: two from its own
	// family, five from the rest of the tree. Primates leave six. The
	// six-way tie resolves to the lexicographically smallest name.
	assert.Equal(t, "Bulldog", tree.Name(guess.Species))
	assert.Equal(t, 5, guess.WorstCase)

	want := map[string][]string{
		"Dogs":    {"Corgi", "Husky"},
		"Mammals": {"Chimp", "Gorilla", "House Cat", "Lion", "Tiger"},
	}

	if diff := cmp.Diff(want, bucketNames(t, tree, guess.Buckets)); diff != "" {
		t.Errorf("bucket mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionWorstCases(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)
	candidates := tree.Leaves()

	worstCaseOf := func(name string) int {
		t.Helper()

		id, err := tree.Lookup(name)
		require.NoError(t, err)

		_, worst, ok := partition(tree, id, candidates, -1)
		require.True(t, ok)

		return worst
	}

	assert.Equal(t, 5, worstCaseOf("Husky"))
	assert.Equal(t, 5, worstCaseOf("Lion"))
	assert.Equal(t, 6, worstCaseOf("Chimp"))
	assert.Equal(t, 6, worstCaseOf("Gorilla"))
}

func TestPartitionCoversCandidates(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)
	candidates := tree.Leaves()

	for _, guess := range candidates {
		buckets, worst, ok := partition(tree, guess, candidates, -1)
		require.True(t, ok)

		var union []string

		total := 0
		for clade, members := range buckets {
			assert.NotEmpty(t, members)
			assert.LessOrEqual(t, len(members), worst)

			total += len(members)
			union = append(union, tree.Names(members)...)

			for _, member := range members {
				assert.Equal(t, clade, tree.LCA(guess, member))
			}
		}

		// Buckets partition every candidate except the guess itself.
		assert.Equal(t, len(candidates)-1, total, "guess %s", tree.Name(guess))

		var want []string
		for _, candidate := range candidates {
			if candidate != guess {
				want = append(want, tree.Name(candidate))
			}
		}

		sort.Strings(union)
		sort.Strings(want)

		if diff := cmp.Diff(want, union); diff != "" {
			t.Errorf("guess %s: partition union mismatch (-want +got):\n%s", tree.Name(guess), diff)
		}
	}
}

func TestBestGuessSingleCandidate(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	lion, err := tree.Lookup("Lion")
	require.NoError(t, err)

	guess, err := BestGuess(tree, []NodeID{lion}, nil)
	require.NoError(t, err)

	assert.Equal(t, lion, guess.Species)
	assert.Equal(t, 0, guess.WorstCase)
	assert.Empty(t, guess.Buckets)
}

func TestBestGuessDeterministic(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)
	candidates := tree.Leaves()

	first, err := BestGuess(tree, candidates, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := BestGuess(tree, candidates, nil)
		require.NoError(t, err)

		assert.Equal(t, first.Species, again.Species)
		assert.Equal(t, first.WorstCase, again.WorstCase)
		assert.Equal(t, first.Buckets, again.Buckets)
	}
}

func TestBestGuessExcluded(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)
	candidates := tree.Leaves()

	bulldog, err := tree.Lookup("Bulldog")
	require.NoError(t, err)

	guess, err := BestGuess(tree, candidates, map[NodeID]bool{bulldog: true})
	require.NoError(t, err)

	// With Bulldog off the table the tie falls to the next name.
	assert.Equal(t, "Corgi", tree.Name(guess.Species))
	assert.Equal(t, 5, guess.WorstCase)
}

func TestBestGuessErrors(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	_, err := BestGuess(tree, nil, nil)
	require.ErrorIs(t, err, ErrNoCandidates)

	husky, err := tree.Lookup("Husky")
	require.NoError(t, err)

	corgi, err := tree.Lookup("Corgi")
	require.NoError(t, err)

	_, err = BestGuess(tree, []NodeID{husky, corgi}, map[NodeID]bool{husky: true, corgi: true})
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestApplyFeedback(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)
	candidates := tree.Leaves()

	husky, err := tree.Lookup("Husky")
	require.NoError(t, err)

	dogs, err := tree.Clade("Dogs")
	require.NoError(t, err)

	cats, err := tree.Clade("Cats")
	require.NoError(t, err)

	root := tree.Root()

	// The answer is a dog: only the other dogs share the Dogs LCA.
	narrowed, err := ApplyFeedback(tree, candidates, husky, dogs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Corgi", "Bulldog"}, tree.Names(narrowed))

	// The answer is outside Dogs: everything but the dogs survives.
	narrowed, err = ApplyFeedback(tree, candidates, husky, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lion", "Tiger", "House Cat", "Chimp", "Gorilla"}, tree.Names(narrowed))

	// Feedback naming a clade unrelated to the guess can never match.
	_, err = ApplyFeedback(tree, candidates, husky, cats)
	require.ErrorIs(t, err, ErrInconsistentFeedback)

	var inconsistent *InconsistentFeedbackError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, "Husky", inconsistent.Guess)
	assert.Equal(t, "Cats", inconsistent.Clade)
}
