package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/mealtrack/internal/calories"
)

func init() {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and load your history",
		Long:  "Log in with email and password. The password can be a flag or piped via stdin.",
		Run:   runLogin,
	}
	loginCmd.Flags().StringP("email", "e", "", "Account email (default: the last identity used)")
	loginCmd.Flags().StringP("password", "p", "", "Password (default: read from stdin)")

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Run:   runRegister,
	}
	registerCmd.Flags().StringP("email", "e", "", "Account email (required)")
	registerCmd.Flags().StringP("password", "p", "", "Password (default: read from stdin)")
	registerCmd.Flags().String("first-name", "", "First name (required)")
	registerCmd.Flags().String("last-name", "", "Last name (required)")
	registerCmd.MarkFlagRequired("email")
	registerCmd.MarkFlagRequired("first-name")
	registerCmd.MarkFlagRequired("last-name")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out; your history stays on disk",
		Run:   runLogout,
	}

	RootCmd.AddCommand(loginCmd, registerCmd, logoutCmd)
}

func password(cmd *cobra.Command) string {
	pw, _ := cmd.Flags().GetString("password")
	if pw == "" {
		pw = readStdin()
	}
	if pw == "" {
		exitErr(cmd.Name(), fmt.Errorf("password is required (--password or stdin)"))
	}
	return pw
}

func runLogin(cmd *cobra.Command, args []string) {
	s := openApp(cmd)
	defer s.Close()

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		// The identity outlives logout, so the last account can be reused.
		if id := s.app.Session.Identity(); id.HasEmail() {
			email = id.Email
		}
	}
	if email == "" {
		exitErr("login", fmt.Errorf("--email is required"))
	}

	identity, err := s.app.Login(cmd.Context(), email, password(cmd))
	if err != nil {
		exitErr("login", err)
	}
	printJSON(cmd, map[string]any{
		"ok":       true,
		"identity": identity,
		"history":  len(s.app.History.Records()),
	})
}

func runRegister(cmd *cobra.Command, args []string) {
	email, _ := cmd.Flags().GetString("email")
	first, _ := cmd.Flags().GetString("first-name")
	last, _ := cmd.Flags().GetString("last-name")
	pw := password(cmd)

	s := openApp(cmd)
	defer s.Close()

	res, err := s.app.Register(cmd.Context(), calories.Registration{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Password:  pw,
	})
	if err != nil {
		exitErr("register", err)
	}
	printJSON(cmd, map[string]any{
		"ok":       true,
		"message":  res.Message,
		"identity": res.Identity,
	})
}

func runLogout(cmd *cobra.Command, args []string) {
	s := openApp(cmd)
	defer s.Close()

	if err := s.app.Logout(cmd.Context()); err != nil {
		exitErr("logout", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), `{"ok":true}`)
}
