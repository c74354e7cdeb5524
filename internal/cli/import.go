package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/mealtrack/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import history records from JSON",
		Long:  "Import history records from JSON on stdin. Expects the format produced by export.",
		Run:   runHistoryImport,
	}

	historyCmd.AddCommand(cmd)
}

func runHistoryImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		exitErr("read stdin", err)
	}

	var records []model.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		exitErr("parse json", err)
	}

	s := openApp(cmd)
	defer s.Close()
	s.requireLogin("history import")

	imported, err := s.app.History.Import(cmd.Context(), records)
	if err != nil {
		exitErr("history import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", imported)
}
