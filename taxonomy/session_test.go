/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taxonomy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	session, err := NewSession(tree)
	require.NoError(t, err)

	assert.Equal(t, StateSearching, session.State())
	assert.Equal(t, tree.Root(), session.Clade())
	assert.Len(t, session.Candidates(), 8)
	assert.Zero(t, session.Rounds())
}

func TestNewSessionWithClade(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	session, err := NewSession(tree, WithClade("Cats"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Lion", "Tiger", "House Cat"}, tree.Names(session.Candidates()))

	_, err = NewSession(tree, WithClade("Birds"))
	require.ErrorIs(t, err, ErrInvalidClade)

	var invalid *InvalidCladeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Birds", invalid.Name)
}

func TestNewSessionWithExclusions(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	session, err := NewSession(tree, WithClade("Dogs"), WithExclusions("Husky"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Corgi", "Bulldog"}, tree.Names(session.Candidates()))

	// Unknown exclusions surface instead of being dropped.
	_, err = NewSession(tree, WithExclusions("Wolf"))
	require.ErrorIs(t, err, ErrNotFound)

	// Excluding an entire clade's species leaves nothing to guess.
	_, err = NewSession(tree, WithClade("Primates"), WithExclusions("Chimp", "Gorilla"))
	require.ErrorIs(t, err, ErrNoCandidates)
}

// TestSessionSolvesEveryAnswer drives a full game for each possible answer,
// always feeding back the true LCA, and checks that the session narrows to
// the answer without ever dropping it.
func TestSessionSolvesEveryAnswer(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	for _, answer := range tree.Leaves() {
		answer := answer

		t.Run(tree.Name(answer), func(t *testing.T) {
			t.Parallel()

			session, err := NewSession(tree)
			require.NoError(t, err)

			for round := 0; round < tree.Len(); round++ {
				guess, err := session.NextGuess()
				require.NoError(t, err)

				if guess.Species == answer {
					require.NoError(t, session.ApplyCorrect(guess.Species))

					break
				}

				clade := tree.LCA(guess.Species, answer)
				require.NoError(t, session.ApplyFeedback(guess.Species, clade))

				assert.Contains(t, session.Candidates(), answer)
				assert.LessOrEqual(t, len(session.Candidates()), guess.WorstCase)
				assert.Equal(t, StateNarrowed, session.State())
			}

			assert.Equal(t, StateSolved, session.State())

			history := session.History()
			require.NotEmpty(t, history)
			assert.True(t, history[len(history)-1].Correct)
			assert.Equal(t, answer, history[len(history)-1].Guess)
		})
	}
}

func TestSessionInconsistentFeedback(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	session, err := NewSession(tree)
	require.NoError(t, err)

	husky, err := tree.Lookup("Husky")
	require.NoError(t, err)

	cats, err := tree.Clade("Cats")
	require.NoError(t, err)

	err = session.ApplyFeedback(husky, cats)
	require.ErrorIs(t, err, ErrInconsistentFeedback)
	assert.Equal(t, StateFailed, session.State())

	// The doomed round still lands in the history.
	require.Len(t, session.History(), 1)
	assert.Equal(t, husky, session.History()[0].Guess)

	// Terminal states absorb every further operation.
	_, err = session.NextGuess()
	require.ErrorIs(t, err, ErrSessionOver)

	err = session.ApplyFeedback(husky, cats)
	require.ErrorIs(t, err, ErrSessionOver)

	err = session.ApplyCorrect(husky)
	require.ErrorIs(t, err, ErrSessionOver)
}

// TestSessionRootFeedback pins the degenerate geometry: in a flat tree the
// root is the LCA of any two distinct leaves, so root feedback eliminates
// only the guess itself.
func TestSessionRootFeedback(t *testing.T) {
	t.Parallel()

	input := `Life
+-Alpha
+-Beta
+-Gamma
\-Delta
`

	tree, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	session, err := NewSession(tree)
	require.NoError(t, err)

	alpha, err := tree.Lookup("Alpha")
	require.NoError(t, err)

	require.NoError(t, session.ApplyFeedback(alpha, tree.Root()))
	assert.Equal(t, []string{"Beta", "Gamma", "Delta"}, tree.Names(session.Candidates()))
}

func TestSessionHistoryCopies(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	session, err := NewSession(tree)
	require.NoError(t, err)

	husky, err := tree.Lookup("Husky")
	require.NoError(t, err)

	dogs, err := tree.Clade("Dogs")
	require.NoError(t, err)

	require.NoError(t, session.ApplyFeedback(husky, dogs))

	history := session.History()
	history[0] = Round{}

	candidates := session.Candidates()
	for i := range candidates {
		candidates[i] = NoNode
	}

	assert.Equal(t, husky, session.History()[0].Guess)
	assert.Equal(t, []string{"Corgi", "Bulldog"}, tree.Names(session.Candidates()))
}

func TestSessionOffPathGuesses(t *testing.T) {
	t.Parallel()

	tree := mammalsTree(t)

	session, err := NewSession(tree, WithClade("Primates"), WithOffPathGuesses())
	require.NoError(t, err)

	// The widened pool scores every unguessed species, so the result must
	// match a direct scan with the same candidates and pool.
	want, err := bestGuess(tree, session.Candidates(), tree.Leaves(), nil)
	require.NoError(t, err)

	got, err := session.NextGuess()
	require.NoError(t, err)

	assert.Equal(t, want.Species, got.Species)
	assert.Equal(t, want.WorstCase, got.WorstCase)
}
