/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"sort"

	"github.com/Seednode/phylo/taxonomy"
	"github.com/spf13/cobra"
)

type guessOptions struct {
	clade   string
	offPath bool
	without string
}

func newGuessCmd(cfg *Config) *cobra.Command {
	opts := &guessOptions{}

	cmd := &cobra.Command{
		Use:           "guess",
		Short:         "Propose the species whose answer narrows the candidates the most.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printBestGuess(cfg, opts)
		},
	}

	fs := cmd.Flags()

	fs.StringVar(&opts.clade, "clade", "", "restrict candidates to this clade (env: PHYLO_CLADE)")
	fs.BoolVar(&opts.offPath, "off-path", false, "allow guesses from outside the candidate set (env: PHYLO_OFF_PATH)")
	fs.StringVar(&opts.without, "without", "", "comma-separated species already guessed (env: PHYLO_WITHOUT)")

	bindFlags(fs)

	return cmd
}

func printBestGuess(cfg *Config, opts *guessOptions) error {
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}

	sessionOpts := []taxonomy.SessionOption{}

	cladeName := ds.tree.Name(ds.tree.Root())

	if opts.clade != "" {
		clade, err := ds.resolveClade(opts.clade)
		if err != nil {
			return err
		}

		cladeName = ds.tree.Name(clade)

		sessionOpts = append(sessionOpts, taxonomy.WithClade(cladeName))
	}

	if opts.without != "" {
		sessionOpts = append(sessionOpts, taxonomy.WithExclusions(splitSpeciesList(ds, opts.without)...))
	}

	if opts.offPath {
		sessionOpts = append(sessionOpts, taxonomy.WithOffPathGuesses())
	}

	session, err := taxonomy.NewSession(ds.tree, sessionOpts...)
	if err != nil {
		return err
	}

	guess, err := session.NextGuess()
	if err != nil {
		return err
	}

	candidates := session.Candidates()

	name := ds.tree.Name(guess.Species)

	fmt.Printf("Best guess for %s: %s\n", cladeName, ds.names.Label(name))

	if guess.WorstCase == 0 {
		fmt.Printf("Only candidate left, so this guess is the answer.\n")

		return nil
	}

	fmt.Printf("Worst case %d of %d candidates remain.\n", guess.WorstCase, len(candidates))

	type bucketRow struct {
		clade string
		size  int
	}

	rows := make([]bucketRow, 0, len(guess.Buckets))

	width := len("(correct)")

	for clade, members := range guess.Buckets {
		row := bucketRow{
			clade: ds.tree.Name(clade),
			size:  len(members),
		}

		if len(row.clade) > width {
			width = len(row.clade)
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].size != rows[j].size {
			return rows[i].size > rows[j].size
		}

		return rows[i].clade < rows[j].clade
	})

	fmt.Printf("\nIf the answer shares this clade, this many candidates remain:\n")

	for _, row := range rows {
		fmt.Printf("  %-*s  %d\n", width, row.clade, row.size)
	}

	fmt.Printf("  %-*s  %d\n", width, "(correct)", 0)

	return nil
}
