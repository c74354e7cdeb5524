package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mealtrack/internal/history"
)

func init() {
	cmd := &cobra.Command{
		Use:   "suggest [query]",
		Short: "Suggest dish names from your history",
		Long:  "Suggest previously looked-up dish names containing the query (case-insensitive).",
		Run:   runHistorySuggest,
	}
	cmd.Flags().IntP("limit", "l", history.DefaultSuggestLimit, "Max suggestions")

	historyCmd.AddCommand(cmd)
}

func runHistorySuggest(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s := openApp(cmd)
	defer s.Close()
	s.requireLogin("history suggest")

	names := s.app.History.Suggest(query, limit)
	if names == nil {
		names = []string{}
	}
	printJSON(cmd, names)
}
