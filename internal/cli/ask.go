package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/scout/internal/llm"
	"github.com/raphaelgruber/scout/internal/session"
)

var askReply bool

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Run one message through classification and search",
	Long: `Run a single chat message through the orchestrator and print what it decided:
the intent, the search query, the context text handed to the reply generator and
the post it would share, if any.

Examples:
  scout ask "what's the weather in Seoul tomorrow?"
  scout ask "just got coffee in Seongsu" --persona Mina
  scout ask "what does 킹받네 mean?" --reply`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askReply, "reply", false, "also generate the persona's reply")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	s, err := getStack(ctx)
	if err != nil {
		return err
	}

	o := s.Orchestrator(session.NewMemory())
	analysis := o.AnalyzeQuestion(ctx, question, persona)
	printAnalysis(out, analysis)

	text, cand := o.ExecuteSearch(ctx, question)
	fmt.Fprintln(out)
	printContext(out, text)
	printCandidate(out, cand)

	if askReply {
		reply, err := s.Replier.Reply(ctx, llm.ReplyRequest{
			Persona:  persona,
			Question: question,
			Context:  text,
			Shared:   cand,
		})
		if err != nil {
			return fmt.Errorf("generate reply: %w", err)
		}
		fmt.Fprintf(out, "\n%s %s\n", defaultTheme.personaStyle().Render(persona+":"), reply)
	}

	if verbose {
		fmt.Fprintln(out)
		printStats(out, s.Metrics.Snapshot())
	}
	return nil
}
