package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mealtrack/internal/calories"
)

func init() {
	cmd := &cobra.Command{
		Use:   "lookup <dish>",
		Short: "Look up the calories of a dish and save it to history",
		Args:  cobra.MinimumNArgs(1),
		Run:   runLookup,
	}
	cmd.Flags().Float64P("servings", "s", 1, "Number of servings")

	RootCmd.AddCommand(cmd)
}

func runLookup(cmd *cobra.Command, args []string) {
	servings, _ := cmd.Flags().GetFloat64("servings")
	dish := strings.Join(args, " ")

	s := openApp(cmd)
	defer s.Close()
	s.requireLogin("lookup")

	res, err := s.app.Lookup(cmd.Context(), dish, servings)
	if errors.Is(err, calories.ErrUnauthorized) {
		exitErr("lookup", fmt.Errorf("session expired, you have been logged out; run `mealtrack login`"))
	}
	if res != nil {
		printJSON(cmd, res)
	}
	if err != nil {
		exitErr("lookup", err)
	}
}
