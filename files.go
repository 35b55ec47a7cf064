/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Seednode/phylo/taxonomy"
)

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

// dataset bundles the tree and its naming data, loaded once at startup and
// shared read-only by every game session.
type dataset struct {
	tree    *taxonomy.Tree
	names   taxonomy.NameMap
	species []string
}

func loadTree(path string) (*taxonomy.Tree, taxonomy.NameMap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return taxonomy.ParseJSON(file)
	}

	tree, err := taxonomy.Parse(file)

	return tree, taxonomy.NameMap{}, err
}

// loadSpeciesList reads one scientific name per line, skipping blanks and
// comments.
func loadSpeciesList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var species []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		species = append(species, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return species, nil
}

// loadDataset reads the tree file (JSON or NCBI text by extension), merges
// in the optional name mapping, and validates the optional species list
// against the tree's leaves. List/tree mismatches are an error, not a
// warning, so a stale tree can't quietly misguess.
func loadDataset(cfg *Config) (*dataset, error) {
	tree, names, err := loadTree(cfg.treeFile)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.treeFile, err)
	}

	logf(cfg, "START: Loaded %d taxa (%d species) from %s", tree.Len(), len(tree.Leaves()), cfg.treeFile)

	if cfg.namesFile != "" {
		file, err := os.Open(cfg.namesFile)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		loaded, err := taxonomy.LoadNames(file)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", cfg.namesFile, err)
		}

		for scientific, common := range loaded {
			names[scientific] = common
		}

		logf(cfg, "START: Loaded %d common names from %s", len(loaded), cfg.namesFile)
	}

	ds := &dataset{
		tree:    tree,
		names:   names,
		species: tree.Species(),
	}

	if cfg.speciesFile != "" {
		species, err := loadSpeciesList(cfg.speciesFile)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", cfg.speciesFile, err)
		}

		missingFromTree, missingFromList := tree.ValidateSpecies(species)
		if len(missingFromTree) > 0 || len(missingFromList) > 0 {
			return nil, fmt.Errorf("%s and %s disagree: %d species missing from tree %v, %d missing from list %v",
				cfg.speciesFile, cfg.treeFile,
				len(missingFromTree), truncateNames(missingFromTree),
				len(missingFromList), truncateNames(missingFromList))
		}

		logf(cfg, "START: Validated %d species from %s", len(species), cfg.speciesFile)
	}

	return ds, nil
}

func truncateNames(names []string) []string {
	const max = 5

	if len(names) <= max {
		return names
	}

	return append(names[:max:max], "...")
}

// resolveSpecies turns player input into a species leaf, accepting either a
// scientific name or a mapped common name.
func (ds *dataset) resolveSpecies(name string) (taxonomy.NodeID, error) {
	name = strings.TrimSpace(name)

	if id, err := ds.tree.Lookup(name); err == nil {
		return id, nil
	}

	scientific, ok := ds.names.Scientific(name)
	if !ok {
		return ds.tree.Lookup(name)
	}

	return ds.tree.Lookup(scientific)
}

// resolveClade does the same for clades, internal or leaf.
func (ds *dataset) resolveClade(name string) (taxonomy.NodeID, error) {
	name = strings.TrimSpace(name)

	if id, err := ds.tree.Clade(name); err == nil {
		return id, nil
	}

	scientific, ok := ds.names.Scientific(name)
	if !ok {
		return ds.tree.Clade(name)
	}

	return ds.tree.Clade(scientific)
}
