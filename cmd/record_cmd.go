package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/user/chatvault/internal/config"
	"github.com/user/chatvault/internal/history"
)

func recordCmd() *cobra.Command {
	var (
		sessionID  string
		sender     string
		isError    bool
		isProgress bool
	)
	cmd := &cobra.Command{
		Use:   "record [content]",
		Short: "Record a chat message",
		Long: `Record stores one message durably. When no --session is given a fresh
UUID-based session id is generated and printed, so follow-up messages can
join the same session.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _, shutdown := mustOpenEngine()
			defer shutdown()

			generated := false
			if sessionID == "" {
				sessionID = "session-" + uuid.NewString()[:8]
				generated = true
			}
			sessionID = config.NormalizeSessionID(sessionID)

			id, ok := eng.AddMessage(context.Background(), history.Message{
				SessionID:  sessionID,
				Timestamp:  history.Now(),
				Sender:     sender,
				Content:    args[0],
				IsError:    isError,
				IsProgress: isProgress,
			})
			if !ok {
				fmt.Fprintln(os.Stderr, "Error: message not stored")
				os.Exit(1)
			}

			if generated {
				fmt.Printf("Recorded message %d in new session %s\n", id, sessionID)
			} else {
				fmt.Printf("Recorded message %d in session %s\n", id, sessionID)
			}
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (generated when empty)")
	cmd.Flags().StringVar(&sender, "sender", "user", "message sender")
	cmd.Flags().BoolVar(&isError, "error", false, "mark the message as an error")
	cmd.Flags().BoolVar(&isProgress, "progress", false, "mark the message as progress output")
	return cmd
}
