/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Seednode/phylo/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// practicePage is a trimmed copy of the practice page structure: the species
// list hides in the second application/json script, behind framework
// serialization.
const practicePage = `<!DOCTYPE html>
<html>
<head>
<script type="application/json">{"locale":"en"}</script>
</head>
<body>
<div id="app"></div>
<script type="application/json">{"v":[[{"speciesList":[{"scientific":"Panthera leo","name":"Lion"},{"scientific":"Homo sapiens","name":"Human"}]}]]}</script>
</body>
</html>`

func TestExtractSpecies(t *testing.T) {
	t.Parallel()

	doc, err := html.Parse(strings.NewReader(practicePage))
	require.NoError(t, err)

	names, err := extractSpecies(doc)
	require.NoError(t, err)

	assert.Equal(t, taxonomy.NameMap{
		"Panthera leo": "Lion",
		"Homo sapiens": "Human",
	}, names)
}

func TestExtractSpeciesMissing(t *testing.T) {
	t.Parallel()

	doc, err := html.Parse(strings.NewReader(`<html><body><p>maintenance</p></body></html>`))
	require.NoError(t, err)

	_, err = extractSpecies(doc)
	assert.Error(t, err)
}

func TestDecodeSpeciesList(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		raw  string
		want taxonomy.NameMap
	}{
		{
			name: "valid",
			raw:  `{"v":[[{"speciesList":[{"scientific":"Panthera leo","name":"Lion"}]}]]}`,
			want: taxonomy.NameMap{"Panthera leo": "Lion"},
		},
		{
			name: "entries without scientific names are skipped",
			raw:  `{"v":[[{"speciesList":[{"name":"Lion"},{"scientific":"Homo sapiens","name":"Human"}]}]]}`,
			want: taxonomy.NameMap{"Homo sapiens": "Human"},
		},
		{
			name: "not json",
			raw:  `<html>`,
		},
		{
			name: "missing v",
			raw:  `{"locale":"en"}`,
		},
		{
			name: "empty v",
			raw:  `{"v":[]}`,
		},
		{
			name: "wrong inner shape",
			raw:  `{"v":[{"speciesList":[]}]}`,
		},
		{
			name: "missing speciesList",
			raw:  `{"v":[[{}]]}`,
		},
		{
			name: "empty speciesList",
			raw:  `{"v":[[{"speciesList":[]}]]}`,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			names, err := decodeSpeciesList(testCase.raw)

			if testCase.want == nil {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, testCase.want, names)
		})
	}
}

func TestGameURL(t *testing.T) {
	t.Parallel()

	url, err := gameURL(&fetchOptions{game: "metazooa"})
	require.NoError(t, err)
	assert.Equal(t, metazooaURL, url)

	url, err = gameURL(&fetchOptions{game: "MetaFlora"})
	require.NoError(t, err)
	assert.Equal(t, metafloraURL, url)

	url, err = gameURL(&fetchOptions{game: "metazooa", url: "http://localhost:1234/play"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:1234/play", url)

	_, err = gameURL(&fetchOptions{game: "wordle"})
	assert.Error(t, err)
}

func TestFetchSpecies(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(practicePage))
	}))
	defer server.Close()

	dir := t.TempDir()

	cfg := &Config{
		speciesFile: filepath.Join(dir, "species.txt"),
		namesFile:   filepath.Join(dir, "names.json"),
	}

	opts := &fetchOptions{
		requests: 3,
		url:      server.URL,
	}

	require.NoError(t, fetchSpecies(context.Background(), cfg, opts))

	species, err := os.ReadFile(cfg.speciesFile)
	require.NoError(t, err)
	assert.Equal(t, "Homo sapiens\nPanthera leo\n", string(species))

	mapping, err := os.Open(cfg.namesFile)
	require.NoError(t, err)
	defer mapping.Close()

	names, err := taxonomy.LoadNames(mapping)
	require.NoError(t, err)
	assert.Equal(t, taxonomy.NameMap{
		"Panthera leo": "Lion",
		"Homo sapiens": "Human",
	}, names)
}

func TestFetchSpeciesNoRequests(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	opts := &fetchOptions{
		requests: 0,
		url:      "http://localhost:1",
	}

	assert.Error(t, fetchSpecies(context.Background(), cfg, opts))
}
