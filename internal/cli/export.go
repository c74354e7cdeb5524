package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export your history as JSON",
		Run:   runHistoryExport,
	}

	historyCmd.AddCommand(cmd)
}

func runHistoryExport(cmd *cobra.Command, args []string) {
	s := openApp(cmd)
	defer s.Close()
	s.requireLogin("history export")

	printJSON(cmd, s.app.History.Export())
}
