/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDot(t *testing.T) {
	t.Parallel()

	ds := testDataset(t)

	var buf bytes.Buffer
	require.NoError(t, writeDot(&buf, ds.tree, ds.names))

	out := buf.String()

	assert.Contains(t, out, "digraph taxonomy {")
	assert.Contains(t, out, "rankdir=TB;")
	assert.Contains(t, out, "splines=ortho;")
	assert.Contains(t, out, `"Mammalia" [shape=ellipse, label="Mammalia"];`)
	assert.Contains(t, out, `"Panthera leo" [shape=box, label="Panthera leo\n(Lion)"];`)
	assert.Contains(t, out, `"Carnivora" -> "Panthera leo";`)
	assert.Contains(t, out, `"Mammalia" -> "Primates";`)
}

func TestWriteNewick(t *testing.T) {
	t.Parallel()

	ds := testDataset(t)

	var buf bytes.Buffer
	require.NoError(t, writeNewick(&buf, ds.tree))

	assert.Equal(t,
		"(('Panthera leo','Canis lupus familiaris')Carnivora,"+
			"('Homo sapiens','Pan troglodytes')Primates)Mammalia;\n",
		buf.String())
}

func TestNewickQuote(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Mammalia", newickQuote("Mammalia"))
	assert.Equal(t, "'Homo sapiens'", newickQuote("Homo sapiens"))
	assert.Equal(t, "'O''ahu tree snail'", newickQuote("O'ahu tree snail"))
}
