/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Seednode/phylo/taxonomy"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
)

const (
	metazooaURL  = "https://metazooa.com/play/practice"
	metafloraURL = "https://flora.metazooa.com/play/practice"
)

type fetchOptions struct {
	game     string
	requests int
	url      string
}

func gameURL(opts *fetchOptions) (string, error) {
	if opts.url != "" {
		return opts.url, nil
	}

	switch strings.ToLower(opts.game) {
	case "metazooa":
		return metazooaURL, nil
	case "metaflora":
		return metafloraURL, nil
	default:
		return "", fmt.Errorf("invalid game %q, must be 'metazooa' or 'metaflora'", opts.game)
	}
}

func newFetchCmd(cfg *Config) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:           "fetch",
		Short:         "Scrape the game's practice page for its species list and common names.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fetchSpecies(cmd.Context(), cfg, opts)
		},
	}

	fs := cmd.Flags()

	fs.StringVar(&opts.game, "game", "metazooa", "game to scrape, metazooa or metaflora (env: PHYLO_GAME)")
	fs.IntVar(&opts.requests, "requests", 100, "number of requests to make (env: PHYLO_REQUESTS)")
	fs.StringVar(&opts.url, "url", "", "practice page URL, overrides --game (env: PHYLO_URL)")

	bindFlags(fs)

	return cmd
}

// fetchSpecies requests the practice page repeatedly and merges the random
// species subset each response carries. The merged mapping lands in the
// configured names file, and the sorted scientific names in the species
// file, ready for tree validation.
func fetchSpecies(ctx context.Context, cfg *Config, opts *fetchOptions) error {
	url, err := gameURL(opts)
	if err != nil {
		return err
	}

	speciesFile := cfg.speciesFile
	if speciesFile == "" {
		speciesFile = fmt.Sprintf("%s-species-sorted.txt", strings.ToLower(opts.game))
	}

	namesFile := cfg.namesFile
	if namesFile == "" {
		namesFile = "name_map.json"
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	names := make(taxonomy.NameMap)

	for i := 0; i < opts.requests; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		found, err := fetchSpeciesPage(ctx, client, url)
		if err != nil {
			return fmt.Errorf("request %d/%d: %w", i+1, opts.requests, err)
		}

		for scientific, common := range found {
			names[scientific] = common
		}

		logf(cfg, "FETCH: Request %d/%d found %d species (%d total)",
			i+1, opts.requests, len(found), len(names))
	}

	if len(names) == 0 {
		return errors.New("no species found")
	}

	species := make([]string, 0, len(names))
	for scientific := range names {
		species = append(species, scientific)
	}
	sort.Strings(species)

	if err := writeSpeciesList(speciesFile, species); err != nil {
		return err
	}

	mapping, err := os.Create(namesFile)
	if err != nil {
		return err
	}
	defer mapping.Close()

	if err := names.Write(mapping); err != nil {
		return err
	}

	fmt.Printf("Wrote %d species to %s and %s\n", len(names), speciesFile, namesFile)

	return nil
}

func writeSpeciesList(path string, species []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, name := range species {
		if _, err := fmt.Fprintln(file, name); err != nil {
			return err
		}
	}

	return nil
}

// fetchSpeciesPage downloads one copy of the practice page and pulls the
// species list out of its embedded state.
func fetchSpeciesPage(ctx context.Context, client *http.Client, url string) (taxonomy.NameMap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	return extractSpecies(doc)
}

// extractSpecies walks the parsed page for <script type="application/json">
// tags and returns the first species list found in one. The page serves a
// random subset of species per request, so callers merge across requests.
func extractSpecies(doc *html.Node) (taxonomy.NameMap, error) {
	var found taxonomy.NameMap

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}

		if n.Type == html.ElementNode && n.Data == "script" && scriptType(n) == "application/json" {
			var text strings.Builder
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				if child.Type == html.TextNode {
					text.WriteString(child.Data)
				}
			}

			if names, err := decodeSpeciesList(text.String()); err == nil {
				found = names

				return
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if found == nil {
		return nil, errors.New("no species list in page")
	}

	return found, nil
}

func scriptType(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "type" {
			return attr.Val
		}
	}

	return ""
}

// decodeSpeciesList digs data["v"][0][0]["speciesList"] out of the page
// state. The surrounding structure is framework serialization that changes
// shape between deploys, so this walks generic JSON rather than binding a
// struct to it.
func decodeSpeciesList(raw string) (taxonomy.NameMap, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}

	outer, ok := data["v"].([]any)
	if !ok || len(outer) == 0 {
		return nil, errors.New("missing v")
	}

	inner, ok := outer[0].([]any)
	if !ok || len(inner) == 0 {
		return nil, errors.New("missing v[0]")
	}

	payload, ok := inner[0].(map[string]any)
	if !ok {
		return nil, errors.New("missing v[0][0]")
	}

	list, ok := payload["speciesList"].([]any)
	if !ok {
		return nil, errors.New("missing speciesList")
	}

	names := make(taxonomy.NameMap, len(list))

	for _, entry := range list {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		scientific, _ := fields["scientific"].(string)
		common, _ := fields["name"].(string)

		if scientific == "" {
			continue
		}

		names[scientific] = common
	}

	if len(names) == 0 {
		return nil, errors.New("empty speciesList")
	}

	return names, nil
}
