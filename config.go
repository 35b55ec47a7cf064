package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	namesFile      string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	speciesFile    string
	treeFile       string
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.treeFile == "" {
		return errors.New("a taxonomy tree is required (--tree-file)")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// bindFlags wires every flag in the set to a PHYLO_-prefixed environment
// variable, with flags taking precedence when both are set.
func bindFlags(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix("PHYLO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "phylo",
		Short:         "A minimax solver for Metazooa-style taxonomy guessing games, served as a webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	pfs := cmd.PersistentFlags()

	pfs.StringVarP(&cfg.treeFile, "tree-file", "t", "commontree.json", "taxonomy tree, .json or NCBI Common Tree text (env: PHYLO_TREE_FILE)")
	pfs.StringVar(&cfg.speciesFile, "species-file", "", "species list to validate the tree against, one name per line (env: PHYLO_SPECIES_FILE)")
	pfs.StringVar(&cfg.namesFile, "names-file", "", "common name mapping, scientific to common (env: PHYLO_NAMES_FILE)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PHYLO_VERBOSE)")

	fs := cmd.Flags()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PHYLO_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PHYLO_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PHYLO_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PHYLO_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: PHYLO_IDLE_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PHYLO_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PHYLO_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PHYLO_VERSION)")

	bindFlags(pfs)
	bindFlags(fs)

	cmd.AddCommand(newFetchCmd(cfg))
	cmd.AddCommand(newGuessCmd(cfg))
	cmd.AddCommand(newRenderCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("phylo v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
