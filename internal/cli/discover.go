package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	discoverQuestion string
	discoverAll      bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover <query>",
	Short: "Search social and video providers directly",
	Long: `Run the multi-window discovery engine for a search term, bypassing classification.

By default the ranked candidates are checked for relevance against --question and
the first match is printed. With --all every merged candidate is listed in rank
order without relevance checks.

Examples:
  scout discover "seongsu cafe"
  scout discover "han river picnic" --question "where should I go this weekend?"
  scout discover "cat video" --all`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverQuestion, "question", "q", "", "user question for the relevance check (defaults to the query)")
	discoverCmd.Flags().BoolVar(&discoverAll, "all", false, "list all ranked candidates without relevance checks")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	s, err := getStack(ctx)
	if err != nil {
		return err
	}
	if s.Engine == nil {
		return errors.New("no discovery provider configured: set YOUTUBE_API_KEY or SERPAPI_API_KEY")
	}

	if discoverAll {
		cands, err := s.Engine.Candidates(ctx, query)
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		if len(cands) == 0 {
			fmt.Fprintln(out, defaultTheme.hintStyle().Render("no candidates found"))
			return nil
		}
		for i := range cands {
			fmt.Fprintf(out, "%2d. ", i+1)
			printCandidate(out, &cands[i])
		}
		return nil
	}

	question := discoverQuestion
	if question == "" {
		question = query
	}
	cand, err := s.Engine.Discover(ctx, query, question)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	printCandidate(out, cand)

	if verbose {
		fmt.Fprintln(out)
		printStats(out, s.Metrics.Snapshot())
	}
	return nil
}
