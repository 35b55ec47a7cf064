/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taxonomy

import (
	"fmt"
)

// Guess is a scored guess: the species to propose, the number of candidates
// left alive by the least helpful feedback, and the partition of the other
// candidates keyed by the clade each one would reveal.
type Guess struct {
	Species   NodeID
	WorstCase int
	Buckets   map[NodeID][]NodeID
}

// BestGuess picks the candidate whose worst feedback eliminates the most
// competitors. For each allowed guess the remaining candidates are bucketed
// by the clade the game would reveal, the lowest common ancestor of guess
// and answer, and the guess with the smallest largest bucket wins.
//
// Ties are broken toward the guess with the smallest sum of squared bucket
// sizes, then toward the lexicographically smallest name, so identical
// inputs always produce identical guesses.
//
// A single remaining candidate is returned directly with WorstCase zero.
// No candidates, or a pool with every species excluded, is an error.
func BestGuess(t *Tree, candidates []NodeID, excluded map[NodeID]bool) (Guess, error) {
	return bestGuess(t, candidates, candidates, excluded)
}

// bestGuess scores each pool entry against the candidate set. The pool and
// the candidates are usually the same slice, but a session configured for
// off-path guessing widens the pool to species already ruled out.
func bestGuess(t *Tree, candidates, pool []NodeID, excluded map[NodeID]bool) (Guess, error) {
	if len(candidates) == 0 {
		return Guess{Species: NoNode}, ErrNoCandidates
	}

	if len(candidates) == 1 {
		return Guess{
			Species:   candidates[0],
			WorstCase: 0,
			Buckets:   map[NodeID][]NodeID{},
		}, nil
	}

	best := Guess{Species: NoNode}
	bestSpread := 0

	for _, guess := range pool {
		if excluded[guess] {
			continue
		}

		limit := -1
		if best.Species != NoNode {
			limit = best.WorstCase
		}

		buckets, worst, ok := partition(t, guess, candidates, limit)
		if !ok {
			continue
		}

		spread := 0
		for _, members := range buckets {
			spread += len(members) * len(members)
		}

		better := best.Species == NoNode ||
			worst < best.WorstCase ||
			(worst == best.WorstCase && spread < bestSpread) ||
			(worst == best.WorstCase && spread == bestSpread && t.Name(guess) < t.Name(best.Species))

		if better {
			best = Guess{Species: guess, WorstCase: worst, Buckets: buckets}
			bestSpread = spread
		}
	}

	if best.Species == NoNode {
		return best, fmt.Errorf("%w: every species in the pool was already guessed", ErrNoCandidates)
	}

	return best, nil
}

// partition buckets every candidate except the guess itself by its LCA with
// the guess. When limit is non-negative, the scan bails out as soon as a
// bucket grows past it, since such a guess can no longer win or tie.
func partition(t *Tree, guess NodeID, candidates []NodeID, limit int) (map[NodeID][]NodeID, int, bool) {
	buckets := make(map[NodeID][]NodeID)
	worst := 0

	for _, candidate := range candidates {
		if candidate == guess {
			continue
		}

		clade := t.LCA(guess, candidate)

		buckets[clade] = append(buckets[clade], candidate)

		if size := len(buckets[clade]); size > worst {
			worst = size

			if limit >= 0 && worst > limit {
				return nil, 0, false
			}
		}
	}

	return buckets, worst, true
}

// ApplyFeedback narrows a candidate set to the species whose lowest common
// ancestor with the guess is exactly the revealed clade. Feedback that no
// candidate satisfies contradicts the tree and fails with an
// InconsistentFeedbackError.
func ApplyFeedback(t *Tree, candidates []NodeID, guess, clade NodeID) ([]NodeID, error) {
	var next []NodeID

	for _, candidate := range candidates {
		if t.LCA(guess, candidate) == clade {
			next = append(next, candidate)
		}
	}

	if len(next) == 0 {
		return nil, &InconsistentFeedbackError{
			Guess: t.Name(guess),
			Clade: t.Name(clade),
		}
	}

	return next, nil
}
