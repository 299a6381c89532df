// Package cli provides the command-line interface for scout.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/scout/internal/config"
	"github.com/raphaelgruber/scout/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	persona string

	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error

	// Lazy-initialized on first use by a command that needs the LLM.
	stack *service.Stack
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Search orchestration for a persona chat assistant",
	Long: `Scout decides, per chat message, whether the assistant should look something up,
runs the matching search, and hands the result back as reply context.

General questions and unfamiliar terms go to a web lookup. Daily-life chatter may surface
one recent Instagram or YouTube post, found by searching several recency windows in
parallel and checking each hit for relevance.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		stderrLevel := slog.LevelWarn
		if verbose {
			stderrLevel = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(config.LoggerOptions{
			File:        cfg.LogFile,
			Level:       cfg.LogLevel,
			StderrLevel: &stderrLevel,
		})
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// getStack builds the search stack on first use.
func getStack(ctx context.Context) (*service.Stack, error) {
	if stack != nil {
		return stack, nil
	}
	s, err := service.NewStack(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	stack = s
	return stack, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and runtime statistics")
	rootCmd.PersistentFlags().StringVarP(&persona, "persona", "p", "Mina", "persona the assistant speaks as")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scout version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "scout %s\n", Version)
	},
}
