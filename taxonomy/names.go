/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taxonomy

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// NameMap translates scientific names to the common names players actually
// type. It is a plain JSON object on disk, scientific name to common name.
type NameMap map[string]string

// LoadNames reads a name mapping from its JSON form.
func LoadNames(r io.Reader) (NameMap, error) {
	var names NameMap

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&names); err != nil {
		return nil, fmt.Errorf("read name map: %w", err)
	}

	return names, nil
}

// Write writes the mapping as indented JSON with sorted keys.
func (m NameMap) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(m)
}

// Common returns the common name for a scientific name, falling back to the
// scientific name itself when no mapping exists.
func (m NameMap) Common(scientific string) string {
	if common, ok := m[scientific]; ok {
		return common
	}

	return scientific
}

// Label renders a name for display, "Common (Scientific)" when the two
// differ and the bare scientific name otherwise.
func (m NameMap) Label(scientific string) string {
	common := m.Common(scientific)
	if common == scientific {
		return scientific
	}

	return fmt.Sprintf("%s (%s)", common, scientific)
}

// Scientific resolves a name a player typed, matching scientific names first
// and common names second, both case-insensitively. The boolean reports
// whether any mapping matched.
func (m NameMap) Scientific(name string) (string, bool) {
	for scientific := range m {
		if strings.EqualFold(scientific, name) {
			return scientific, true
		}
	}

	for scientific, common := range m {
		if strings.EqualFold(common, name) {
			return scientific, true
		}
	}

	return name, false
}
