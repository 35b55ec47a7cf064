/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taxonomy

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Parse reads an NCBI Common Tree text export. Each line is a taxon whose
// depth is encoded by its drawing prefix: every "|" counts one level, every
// pair of spaces counts one more. The first taxon is the root, and later
// column-zero lines are the root's direct children, which is how the NCBI
// renderer draws them.
//
// Blank lines and pure decoration lines are skipped. A line indented more
// than one level past its predecessor, a duplicate taxon name, or an input
// with no taxa at all fail with a ParseError.
func Parse(r io.Reader) (*Tree, error) {
	type frame struct {
		depth int
		id    NodeID
	}

	builder := newTreeBuilder()

	var stack []frame

	lineno := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineno++

		line := scanner.Text()

		prefix := 0
		for prefix < len(line) && isPrefixChar(line[prefix]) {
			prefix++
		}

		name := NormalizeName(line[prefix:])
		if name == "" {
			continue
		}

		depth := depthOf(line[:prefix])

		switch {
		case len(stack) == 0:
			if depth != 0 {
				return nil, &ParseError{
					Line:   lineno,
					Text:   line,
					Reason: "first taxon is indented",
					err:    ErrMalformedTree,
				}
			}
		case depth == 0:
			stack = stack[:1]
		default:
			if depth > stack[len(stack)-1].depth+1 {
				return nil, &ParseError{
					Line:   lineno,
					Text:   line,
					Reason: "indentation jumps more than one level",
					err:    ErrMalformedTree,
				}
			}

			for stack[len(stack)-1].depth >= depth {
				stack = stack[:len(stack)-1]
			}
		}

		parent := NoNode
		if len(stack) > 0 {
			parent = stack[len(stack)-1].id

			// NCBI collapses some single-child clades into a child that
			// repeats its parent's name. Suffix the child so both stay
			// addressable.
			if name == builder.nodes[parent].name {
				name += "_child"
			}
		}

		id, ok := builder.add(name, "", parent)
		if !ok {
			return nil, &ParseError{
				Line:   lineno,
				Text:   line,
				Reason: fmt.Sprintf("duplicate taxon %q", name),
				err:    ErrMalformedTree,
			}
		}

		stack = append(stack, frame{depth: depth, id: id})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}

	if len(builder.nodes) == 0 {
		return nil, &ParseError{
			Reason: "no taxa in input",
			err:    ErrEmptyTree,
		}
	}

	return builder.finish(), nil
}

func isPrefixChar(c byte) bool {
	switch c {
	case '|', ' ', '+', '\\', '-':
		return true
	default:
		return false
	}
}

// depthOf converts a drawing prefix into a tree depth. Pipes mark ancestor
// columns directly. Runs of spaces left by already-closed branches come in
// pairs, so integer division absorbs the single alignment space that
// follows a pipe.
func depthOf(prefix string) int {
	return strings.Count(prefix, "|") + strings.Count(prefix, " ")/2
}

// NormalizeName cleans a raw taxon label: surrounding single quotes are
// dropped, and subspecies that merely repeat the species epithet, like
// "Gorilla gorilla gorilla", are collapsed to the binomial.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)

	if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
		name = strings.TrimSpace(name[1 : len(name)-1])
	}

	fields := strings.Fields(name)
	if len(fields) >= 3 && fields[len(fields)-1] == fields[len(fields)-2] {
		name = strings.Join(fields[:len(fields)-1], " ")
	}

	return name
}
