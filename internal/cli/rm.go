package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove one history record",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryRm,
	}

	historyCmd.AddCommand(cmd)
}

func runHistoryRm(cmd *cobra.Command, args []string) {
	s := openApp(cmd)
	defer s.Close()
	s.requireLogin("history rm")

	removed, err := s.app.History.Remove(cmd.Context(), args[0])
	if err != nil {
		exitErr("history rm", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"removed":%t}`+"\n", removed)
}
