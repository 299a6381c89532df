package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/scout/internal/config"
	"github.com/raphaelgruber/scout/internal/db"
	"github.com/raphaelgruber/scout/internal/llm"
	"github.com/raphaelgruber/scout/internal/models"
	"github.com/raphaelgruber/scout/internal/session"
)

// replyHistoryTurns is how much history the reply generator sees.
const replyHistoryTurns = 8

var (
	chatStore        string
	chatConversation string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the persona interactively",
	Long: `Start an interactive chat. Every message is classified, searched if needed and
answered by the persona. Shared posts are remembered so the persona does not
push another one for a while.

With --store surreal the conversation is kept in SurrealDB and can be resumed
with --conversation.

Type /quit or press Ctrl-D to leave.

Examples:
  scout chat --persona Mina
  scout chat --store surreal
  scout chat --store surreal --conversation 3b2f...`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatStore, "store", "", "session store: memory or surreal (default from SCOUT_SESSION_STORE)")
	chatCmd.Flags().StringVar(&chatConversation, "conversation", "", "conversation id to resume (surreal store)")
}

// turnOrchestrator is the part of the search orchestrator a chat turn uses.
type turnOrchestrator interface {
	AnalyzeQuestion(ctx context.Context, question, personaName string) models.AnalysisResult
	ExecuteSearch(ctx context.Context, question string) (string, *models.Candidate)
}

type replier interface {
	Reply(ctx context.Context, req llm.ReplyRequest) (string, error)
}

// chatLoop runs turns read line by line from in.
type chatLoop struct {
	orch    turnOrchestrator
	store   session.Store
	replier replier
	persona string
	logger  *slog.Logger
	in      io.Reader
	out     io.Writer
	prompt  bool
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if chatStore == "" {
		chatStore = cfg.SessionStore
	}

	s, err := getStack(ctx)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, s.Metrics)
	if err != nil {
		return err
	}
	defer closeStore()

	loop := &chatLoop{
		orch:    s.Orchestrator(store),
		store:   store,
		replier: s.Replier,
		persona: persona,
		logger:  logger,
		in:      cmd.InOrStdin(),
		out:     cmd.OutOrStdout(),
		prompt:  term.IsTerminal(int(os.Stdin.Fd())),
	}
	if err := loop.run(ctx); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintln(loop.out)
		printStats(loop.out, s.Metrics.Snapshot())
	}
	return nil
}

// openStore returns the configured session store and its cleanup func.
func openStore(ctx context.Context, rec db.Recorder) (session.Store, func(), error) {
	switch chatStore {
	case config.StoreMemory:
		if chatConversation != "" {
			logger.Warn("--conversation is ignored by the memory store")
		}
		return session.NewMemory(), func() {}, nil

	case config.StoreSurreal:
		client, err := db.Open(ctx, db.ConfigFrom(cfg), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open session database: %w", err)
		}
		closeFn := func() {
			if err := client.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}

		id := chatConversation
		if id == "" {
			id = uuid.NewString()
		}
		store, err := client.Session(ctx, id, persona, db.WithMetrics(rec))
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		fmt.Fprintln(os.Stderr, defaultTheme.hintStyle().Render("conversation "+id))
		return store, closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q: use %s or %s", chatStore, config.StoreMemory, config.StoreSurreal)
	}
}

func (c *chatLoop) run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for {
		if c.prompt {
			fmt.Fprint(c.out, defaultTheme.statusStyle().Render("you> "))
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		if err := c.turn(ctx, line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// turn answers one message. The assistant turn carries the shared post so the
// cooldown sees it on later turns.
func (c *chatLoop) turn(ctx context.Context, question string) error {
	history, err := c.store.RecentTurns(ctx, replyHistoryTurns)
	if err != nil {
		c.logger.Warn("load reply history failed", "error", err)
	}

	c.orch.AnalyzeQuestion(ctx, question, c.persona)
	text, cand := c.orch.ExecuteSearch(ctx, question)

	if err := c.store.AppendTurn(ctx, models.Turn{Role: models.RoleUser, Content: question}); err != nil {
		return fmt.Errorf("record user turn: %w", err)
	}

	reply, err := c.replier.Reply(ctx, llm.ReplyRequest{
		Persona:  c.persona,
		Question: question,
		History:  history,
		Context:  text,
		Shared:   cand,
	})
	if err != nil {
		fmt.Fprintln(c.out, defaultTheme.errorStyle().Render("reply failed: "+err.Error()))
		return nil
	}

	fmt.Fprintf(c.out, "%s %s\n", defaultTheme.personaStyle().Render(c.persona+":"), reply)
	if cand != nil {
		printCandidate(c.out, cand)
	}

	return c.store.AppendTurn(ctx, models.Turn{Role: models.RoleAssistant, Content: reply, Social: cand})
}
