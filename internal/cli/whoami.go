package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Run:   runWhoami,
	}

	RootCmd.AddCommand(cmd)
}

func runWhoami(cmd *cobra.Command, args []string) {
	s := openApp(cmd)
	defer s.Close()

	out := map[string]any{
		"status":    s.app.Session.Status(),
		"identity":  s.app.Session.Identity(),
		"namespace": s.app.History.Active(),
		"records":   len(s.app.History.Records()),
	}
	if exp, ok := s.app.Session.TokenExpiry(); ok {
		out["token_expires_at"] = exp.UTC().Format(time.RFC3339)
		out["token_expired"] = time.Now().After(exp)
	}
	printJSON(cmd, out)
}
