package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Your lookup history",
}

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List history records, most recent first",
		Run:   runHistoryList,
	}
	listCmd.Flags().IntP("limit", "l", 0, "Max results (0 for all)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history records for the current account",
		Run:   runHistoryClear,
	}

	historyCmd.AddCommand(listCmd, clearCmd)
	RootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s := openApp(cmd)
	defer s.Close()
	s.requireLogin("history list")

	records := s.app.History.Records()
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	printJSON(cmd, records)
}

func runHistoryClear(cmd *cobra.Command, args []string) {
	s := openApp(cmd)
	defer s.Close()
	s.requireLogin("history clear")

	if err := s.app.History.Clear(cmd.Context()); err != nil {
		exitErr("history clear", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), `{"ok":true}`)
}
