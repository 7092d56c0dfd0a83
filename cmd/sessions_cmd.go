package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/chatvault/internal/history"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "View and export chat sessions",
	}
	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())
	cmd.AddCommand(sessionsExportCmd())
	return cmd
}

func sessionsListCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Run: func(cmd *cobra.Command, args []string) {
			eng, _, shutdown := mustOpenEngine()
			defer shutdown()

			sessions := eng.GetSessions(limit)
			if jsonOutput {
				printJSON(sessions)
				return
			}
			printSessions(sessions)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max sessions to list")
	return cmd
}

func sessionsShowCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show a session's messages",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _, shutdown := mustOpenEngine()
			defer shutdown()

			sess := eng.GetSession(args[0])
			if sess == nil {
				fmt.Fprintf(os.Stderr, "Error: session %q not found\n", args[0])
				os.Exit(1)
			}

			msgs := eng.GetSessionMessages(args[0])
			if jsonOutput {
				printJSON(map[string]any{"session": sess, "messages": msgs})
				return
			}

			fmt.Printf("Session %s  (%d messages, %s to %s)\n\n",
				sess.SessionID, sess.MessageCount, sess.StartTime, sess.EndTime)
			// newest-first store order; read top-down chronologically
			for i := len(msgs) - 1; i >= 0; i-- {
				printMessage(msgs[i])
			}
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func sessionsExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Export a session as a transcript or JSON bundle",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, cfg, shutdown := mustOpenEngine()
			defer shutdown()
			mgr := newManager(eng, cfg)

			var (
				path string
				err  error
			)
			switch format {
			case "txt":
				path, err = mgr.ExportSessionTxt(args[0])
			case "json":
				path, err = mgr.ExportSessionJSON(args[0])
			default:
				fmt.Fprintf(os.Stderr, "Error: unknown format %q (want txt or json)\n", format)
				os.Exit(1)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if path == "" {
				fmt.Printf("Session %s has no messages, nothing exported\n", args[0])
				return
			}
			fmt.Printf("Exported %s\n", path)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "txt", "export format: txt or json")
	return cmd
}

func printSessions(sessions []history.Session) {
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tMESSAGES\tSTARTED\tLAST ACTIVITY")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.SessionID, s.MessageCount, s.StartTime, s.EndTime)
	}
	w.Flush()
}

func printMessage(m history.Message) {
	tag := ""
	switch {
	case m.IsError:
		tag = "[ERROR] "
	case m.IsProgress:
		tag = "[PROGRESS] "
	}
	fmt.Printf("[%s] %s%s: %s\n", m.Timestamp, tag, m.Sender, m.Content)
}
