// Package cli wires the resolver's command tree: resolve, probe, and matrix
// inspection. Exit codes: 0 success, 1 exhausted, 2 fatal startup failure.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"webuictl/internal/config"
)

// exitCodeError carries a process exit code through cobra.
type exitCodeError struct {
	code int
	msg  string
}

func (e exitCodeError) Error() string { return e.msg }

type rootOpts struct {
	configPath string
	logLevel   string
	logger     zerolog.Logger
}

// Main executes the command tree and returns the process exit code.
func Main() int {
	opts := &rootOpts{}
	root := buildRootCmd(opts)
	if err := root.Execute(); err != nil {
		var ec exitCodeError
		if errors.As(err, &ec) {
			if ec.msg != "" {
				fmt.Fprintln(os.Stderr, ec.msg)
			}
			return ec.code
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return 0
}

func buildRootCmd(opts *rootOpts) *cobra.Command {
	root := &cobra.Command{
		Use:           "webuictl",
		Short:         "Environment-compatibility resolver for the image-generation runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (yaml/json/toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults WEBUICTL_LOG_LEVEL or info)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		opts.logger = newLogger(opts.logLevel)
	}

	root.AddCommand(newResolveCmd(opts))
	root.AddCommand(newProbeCmd(opts))
	root.AddCommand(newMatrixCmd(opts))

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	root.AddCommand(completionCmd)

	return root
}

func newLogger(level string) zerolog.Logger {
	if level == "" {
		level = os.Getenv("WEBUICTL_LOG_LEVEL")
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// loadConfig merges file, environment, and defaults.
func loadConfig(opts *rootOpts) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		c, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	cfg.FromEnv()
	cfg.ApplyDefaults()
	return cfg, nil
}
