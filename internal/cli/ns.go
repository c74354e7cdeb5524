package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	nsCmd := &cobra.Command{
		Use:   "ns",
		Short: "History namespaces on this machine",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the accounts that have stored history",
		Run:   runNSList,
	}

	nsCmd.AddCommand(listCmd)
	RootCmd.AddCommand(nsCmd)
}

func runNSList(cmd *cobra.Command, args []string) {
	s := openApp(cmd)
	defer s.Close()

	names, err := s.app.History.Namespaces(cmd.Context())
	if err != nil {
		exitErr("list namespaces", err)
	}
	if names == nil {
		names = []string{}
	}
	printJSON(cmd, names)
}
