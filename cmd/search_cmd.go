package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/chatvault/internal/history"
)

func searchCmd() *cobra.Command {
	var (
		jsonOutput bool
		semantic   bool
		sessionID  string
		sender     string
		startDate  string
		endDate    string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search stored messages",
		Long: `Search runs a full-text query over message content, optionally narrowed
by session, sender, and date range. All given filters must match. With
--semantic the query is embedded and matched against the vector index
instead, returning the most similar messages with scores.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _, shutdown := mustOpenEngine()
			defer shutdown()

			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			if semantic {
				hits := eng.SemanticSearch(context.Background(), query, limit)
				if jsonOutput {
					printJSON(hits)
					return
				}
				if len(hits) == 0 {
					fmt.Println("No matches.")
					return
				}
				for _, h := range hits {
					fmt.Printf("%.3f  ", h.Score)
					printMessage(h.Message)
				}
				return
			}

			msgs := eng.SearchMessages(context.Background(), history.SearchOptions{
				Query:     query,
				SessionID: sessionID,
				Sender:    sender,
				StartDate: startDate,
				EndDate:   endDate,
				Limit:     limit,
			})
			if jsonOutput {
				printJSON(msgs)
				return
			}
			if len(msgs) == 0 {
				fmt.Println("No matches.")
				return
			}
			for _, m := range msgs {
				fmt.Printf("%s  ", m.SessionID)
				printMessage(m)
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&semantic, "semantic", false, "similarity search via the vector index")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "restrict to one session")
	cmd.Flags().StringVar(&sender, "sender", "", "restrict to one sender")
	cmd.Flags().StringVar(&startDate, "from", "", "inclusive lower bound (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "to", "", "inclusive upper bound (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max results")
	return cmd
}
