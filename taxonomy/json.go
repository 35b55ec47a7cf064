/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taxonomy

import (
	"encoding/json"
	"fmt"
	"io"
)

// jsonNode mirrors the nested tree format produced by the NCBI toolchain:
// scientific name, display name, taxonomy ID, and children in source order.
type jsonNode struct {
	Scientific string      `json:"scientific"`
	Name       string      `json:"name,omitempty"`
	Rank       string      `json:"rank,omitempty"`
	TaxID      int64       `json:"taxid,omitempty"`
	Children   []*jsonNode `json:"children,omitempty"`
}

// ParseJSON reads a nested JSON tree export. Alongside the Tree it returns
// the common-name mapping embedded in the file, one entry per node whose
// display name differs from its scientific name.
func ParseJSON(r io.Reader) (*Tree, NameMap, error) {
	var root *jsonNode

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&root); err != nil {
		return nil, nil, &ParseError{
			Reason: fmt.Sprintf("invalid JSON tree: %v", err),
			err:    ErrMalformedTree,
		}
	}

	if root == nil {
		return nil, nil, &ParseError{
			Reason: "no taxa in input",
			err:    ErrEmptyTree,
		}
	}

	builder := newTreeBuilder()
	names := make(NameMap)

	type frame struct {
		parent NodeID
		node   *jsonNode
	}

	stack := []frame{{parent: NoNode, node: root}}
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if next.node.Scientific == "" {
			return nil, nil, &ParseError{
				Reason: "node without scientific name",
				err:    ErrMalformedTree,
			}
		}

		id, ok := builder.add(next.node.Scientific, next.node.Rank, next.parent)
		if !ok {
			return nil, nil, &ParseError{
				Reason: fmt.Sprintf("duplicate taxon %q", next.node.Scientific),
				err:    ErrMalformedTree,
			}
		}

		builder.nodes[id].taxid = next.node.TaxID

		if next.node.Name != "" && next.node.Name != next.node.Scientific {
			names[next.node.Scientific] = next.node.Name
		}

		for i := len(next.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{parent: id, node: next.node.Children[i]})
		}
	}

	return builder.finish(), names, nil
}

// WriteJSON writes a tree back out in the nested JSON format, resolving
// display names through the given mapping. Passing a nil NameMap repeats the
// scientific name as the display name, matching the upstream exporter.
func WriteJSON(w io.Writer, t *Tree, names NameMap) error {
	built := make([]*jsonNode, t.Len())

	for i := t.Len() - 1; i >= 0; i-- {
		id := NodeID(i)

		node := &jsonNode{
			Scientific: t.Name(id),
			Name:       names.Common(t.Name(id)),
			Rank:       t.Rank(id),
			TaxID:      t.TaxID(id),
		}

		for _, child := range t.Children(id) {
			node.Children = append(node.Children, built[child])
		}

		built[i] = node
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(built[0])
}
