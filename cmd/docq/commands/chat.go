package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"

	"github.com/54b3r/docq-go/internal/store"
)

// chatHistoryDepth is the number of stored turns injected per question.
const chatHistoryDepth = 10

// NewChatCmd constructs the `docq chat` command, an interactive REPL over
// the indexed documents with persistent per-session history.
func NewChatCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat over the indexed documents",
		Long: `Start an interactive question-answering session.

Conversation history is persisted per session (SQLite, ~/.docq/history.db)
and injected into subsequent questions so follow-ups work naturally.
Set DOCQ_HISTORY_DB=disabled to turn persistence off.

Type "exit" or press Ctrl-D to leave.

Examples:
  docq chat
  docq chat --session project-x`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()

			qa, _, closeStore, err := buildQAPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer closeStore()

			history := openHistory(log)
			if history != nil {
				defer history.Close()
			}

			fmt.Println("docq chat — ask about your documents (type \"exit\" to quit)")

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err()
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					return nil
				}

				msgs := loadChatHistory(cmd, history, session, log)

				events, err := qa.AnswerStream(ctx, question, 0, msgs)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}

				var answer strings.Builder
				var sources []string
				failed := false
				for ev := range events {
					switch {
					case ev.Err != nil:
						fmt.Fprintf(os.Stderr, "\nerror: %v\n", ev.Err)
						failed = true
					case ev.Done:
						sources = ev.Sources
					default:
						answer.WriteString(ev.Token)
						fmt.Print(ev.Token)
					}
				}
				fmt.Println()
				printSources(sources)
				fmt.Println()

				if history != nil && !failed {
					if err := history.Append(ctx, session, store.RoleUser, question); err != nil {
						log.Warn("history: failed to persist question", slog.Any("error", err))
					}
					if err := history.Append(ctx, session, store.RoleAssistant, answer.String()); err != nil {
						log.Warn("history: failed to persist answer", slog.Any("error", err))
					}
				}
			}
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "default", "Session name for persistent conversation history")

	return cmd
}

// openHistory opens the conversation store, honouring DOCQ_HISTORY_DB.
// Returns nil when history is disabled or unavailable — chat still works,
// just without memory.
func openHistory(log *slog.Logger) store.ConversationStore {
	dbPath := os.Getenv("DOCQ_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via DOCQ_HISTORY_DB=disabled")
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}
	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	return hs
}

// loadChatHistory converts the stored session tail into chat messages.
func loadChatHistory(cmd *cobra.Command, history store.ConversationStore, session string, log *slog.Logger) []*schema.Message {
	if history == nil {
		return nil
	}
	stored, err := history.Recent(cmd.Context(), session, chatHistoryDepth)
	if err != nil {
		log.Warn("history: failed to load session", slog.Any("error", err))
		return nil
	}
	msgs := make([]*schema.Message, 0, len(stored))
	for _, m := range stored {
		switch m.Role {
		case store.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Content))
		case store.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		}
	}
	return msgs
}
