package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"realestate-assistant/internal/assistant/dispatch"
	"realestate-assistant/internal/assistant/pulse"
	"realestate-assistant/internal/assistant/router"
	"realestate-assistant/internal/collaborators/crm"
	"realestate-assistant/internal/collaborators/offers"
	"realestate-assistant/internal/common/config"
	"realestate-assistant/internal/common/database"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/models"

	"github.com/spf13/cobra"
)

var (
	chatUser    string
	chatConnect bool
	chatTimeout time.Duration
)

// chatCmd runs an interactive conversation
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation, one line per turn",
	Long: `Start a conversation with the assistant. Every line is one turn and the
session is carried between turns like the HTTP API does.

Without --connect every search returns no rows. With --connect the
configured Postgres and Elasticsearch back the lookups.

Type "exit" or send EOF to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "cli-user", "User id the turns are recorded for")
	chatCmd.Flags().BoolVar(&chatConnect, "connect", false, "Use the configured Postgres and Elasticsearch")
	chatCmd.Flags().DurationVar(&chatTimeout, "timeout", 15*time.Second, "Per-turn timeout")
}

// TurnHandler runs one assistant turn.
type TurnHandler interface {
	HandleMessage(ctx context.Context, u models.Utterance, s models.Session) router.Turn
}

func runChat(cmd *cobra.Command, _ []string) error {
	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, "console")

	collab, maxItems, cleanup, err := chatCollaborators(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer cleanup()

	d := dispatch.NewDispatcher(&dispatch.Config{Timeout: chatTimeout, MaxItems: maxItems}, collab, log)
	r := router.New(router.Config{MaxListItems: maxItems}, d, pulse.NewTracker(pulse.NewMemoryStore(), log), log)
	defer r.Wait()

	return chatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), r, chatUser, chatTimeout)
}

func chatCollaborators(ctx context.Context, log logger.Logger) (dispatch.Collaborators, int, func(), error) {
	if !chatConnect {
		off := offlineLookups{}
		return dispatch.Collaborators{Customers: off, Requests: off, Offers: off, BusinessCards: off}, 5, func() {}, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return dispatch.Collaborators{}, 0, nil, err
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return dispatch.Collaborators{}, 0, nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		return dispatch.Collaborators{}, 0, nil, err
	}
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		pg.Close()
		return dispatch.Collaborators{}, 0, nil, err
	}

	store := crm.NewStore(pg.DB, crm.Config{ShareBaseURL: cfg.Assistant.ShareBaseURL}, log)
	collab := dispatch.Collaborators{
		Customers:     store,
		Requests:      store,
		Offers:        offers.NewSearcher(es.Client, cfg.Database.Elasticsearch.OffersIndex, log),
		BusinessCards: store,
	}
	return collab, cfg.Assistant.MaxListItems, func() { pg.Close() }, nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// chatLoop reads one turn per line until EOF or "exit".
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, turns TurnHandler, userID string, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scanner := bufio.NewScanner(in)
	session := models.Session{}

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}

		turnCtx, cancel := context.WithTimeout(ctx, timeout)
		turn := turns.HandleMessage(turnCtx, models.Utterance{
			UserID:   userID,
			Text:     line,
			Metadata: map[string]interface{}{"channel": "cli"},
		}, session)
		cancel()

		session = turn.Session
		printTurn(out, turn)
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func printTurn(out io.Writer, turn router.Turn) {
	resp := turn.Response
	fmt.Fprintln(out, resp.Reply)
	for i, a := range resp.Actions {
		fmt.Fprintf(out, "  [%d] %s (%s)\n", i+1, a.Label, a.Name)
	}
	if verbose {
		fmt.Fprintf(out, "  intent=%s confidence=%.2f entity=%s step=%s turns=%d\n",
			resp.Intent, resp.Confidence, resp.Entity, turn.Session.CurrentStep(), turn.Pulse.InteractionCount)
	}
}
