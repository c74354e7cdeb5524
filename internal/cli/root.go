// Package cli implements the mealtrack CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mealtrack/internal/app"
	"github.com/rcliao/mealtrack/internal/config"
	"github.com/rcliao/mealtrack/internal/logger"
	"github.com/rcliao/mealtrack/internal/store"
	"github.com/rcliao/mealtrack/internal/telemetry"
)

const serviceName = "mealtrack"

var (
	configPath   string
	dbPath       string
	apiBaseURL   string
	forwarderURL string
	direct       bool
	logLevel     string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mealtrack",
	Short: "Calorie lookups with a per-user local history",
	Long: "mealtrack logs in to the calorie backend, looks up dishes and keeps a local history " +
		"of results for each account. Output is JSON on stdout; logs go to stderr.",
}

func init() {
	f := RootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file (default: $MEALTRACK_CONFIG)")
	f.StringVarP(&dbPath, "db", "d", "", "Database path (default: $MEALTRACK_DB or ~/.mealtrack/mealtrack.db)")
	f.StringVar(&apiBaseURL, "api-base-url", "", "Backend base URL (default: $MEALTRACK_API_BASE_URL)")
	f.StringVar(&forwarderURL, "forwarder-url", "", "Forwarder origin (default: $MEALTRACK_FORWARDER_URL or http://localhost:8787)")
	f.BoolVar(&direct, "direct", false, "Send requests straight to the backend instead of through the forwarder")
	f.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig layers flags that were set on top of file and environment settings.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("api-base-url") {
		cfg.APIBaseURL = apiBaseURL
	}
	if flags.Changed("forwarder-url") {
		cfg.ForwarderURL = forwarderURL
	}
	if flags.Changed("direct") {
		cfg.Direct = direct
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return cfg
}

// session is an opened, hydrated client process.
type session struct {
	cfg      *config.Config
	app      *app.App
	store    *store.SQLiteStore
	shutdown telemetry.Shutdown
}

// openApp loads settings, opens the store and hydrates the session. It exits on failure.
func openApp(cmd *cobra.Command) *session {
	cfg := loadConfig(cmd)
	if err := cfg.Validate(); err != nil {
		exitErr("config", err)
	}
	log := logger.SetupDefault(os.Stderr, cfg.LogLevel)

	shutdown, err := telemetry.Init(cmd.Context(), serviceName, cfg.OTLPEndpoint)
	if err != nil {
		exitErr("telemetry", err)
	}

	// Client commands exit after one call, so they record no metrics; proxy serve does.
	a, s, err := app.Open(cfg, log, nil)
	if err != nil {
		exitErr("open store", err)
	}
	if err := a.Start(cmd.Context()); err != nil {
		// Hydration still completed; continue as logged out.
		log.Warn("session hydration", "error", err)
	}
	return &session{cfg: cfg, app: a, store: s, shutdown: shutdown}
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Warn("close store", "error", err)
	}
	if err := s.shutdown(context.Background()); err != nil {
		slog.Warn("telemetry shutdown", "error", err)
	}
}

// requireLogin exits unless the session holds a token.
func (s *session) requireLogin(action string) {
	if s.app.Session.CurrentToken() == "" {
		s.Close()
		exitErr(action, app.ErrNotLoggedIn)
	}
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

// readStdin returns piped stdin, or "" when stdin is a terminal.
func readStdin() string {
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return ""
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}
	return strings.TrimRight(string(b), "\r\n")
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
