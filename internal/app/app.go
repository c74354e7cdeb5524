// Package app ties the session, the history cache and the calorie client together.
// It is the only place that reacts to backend answers by changing session state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rcliao/mealtrack/internal/api"
	"github.com/rcliao/mealtrack/internal/calories"
	"github.com/rcliao/mealtrack/internal/config"
	"github.com/rcliao/mealtrack/internal/history"
	"github.com/rcliao/mealtrack/internal/metrics"
	"github.com/rcliao/mealtrack/internal/model"
	"github.com/rcliao/mealtrack/internal/session"
	"github.com/rcliao/mealtrack/internal/store"
)

// ErrNotLoggedIn is returned by operations that need a token when there is none.
var ErrNotLoggedIn = errors.New("not logged in")

// App is one client process: a session, its history and the backend client.
type App struct {
	Session  *session.Manager
	History  *history.Cache
	Calories *calories.Client
	logger   *slog.Logger
}

// New wires the history cache to session events.
func New(sess *session.Manager, hist *history.Cache, cal *calories.Client, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	sess.Subscribe(hist)
	return &App{Session: sess, History: hist, Calories: cal, logger: logger}
}

// Open builds an App from cfg on a SQLite store. The caller closes the store.
func Open(cfg *config.Config, logger *slog.Logger, rec metrics.Recorder) (*App, *store.SQLiteStore, error) {
	if rec == nil {
		rec = metrics.Nop{}
	}
	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	sess := session.New(s, logger)
	hist := history.New(s, logger, history.WithMetrics(rec))
	client := api.New(api.Options{
		BaseURL:      cfg.APIBaseURL,
		ForwarderURL: cfg.ForwarderURL,
		Direct:       cfg.Direct,
	}, sess, api.WithLogger(logger), api.WithMetrics(rec))

	return New(sess, hist, calories.New(client), logger), s, nil
}

// Start hydrates the session. A logged-in session loads its history namespace.
func (a *App) Start(ctx context.Context) error {
	return a.Session.Hydrate(ctx)
}

// Login authenticates and starts a session for email.
func (a *App) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	res, err := a.Calories.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.begin(ctx, &res.Identity, res.Token); err != nil {
		return nil, err
	}
	a.logger.Info("logged in", "email", res.Identity.Email)
	return &res.Identity, nil
}

// Register creates an account and starts a session for it.
func (a *App) Register(ctx context.Context, reg calories.Registration) (*calories.RegisterResult, error) {
	res, err := a.Calories.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	if err := a.begin(ctx, &res.Identity, res.Token); err != nil {
		return nil, err
	}
	a.logger.Info("registered", "email", res.Identity.Email)
	return res, nil
}

// begin sets the identity before the token so the token transition sees the email.
func (a *App) begin(ctx context.Context, identity *model.Identity, token string) error {
	if err := a.Session.SetIdentity(ctx, identity); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	if err := a.Session.SetToken(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Logout ends the session. The identity and the stored history are kept.
func (a *App) Logout(ctx context.Context) error {
	return a.Session.Clear(ctx)
}

// LookupResult is a completed lookup. Record is nil when no history namespace is active.
type LookupResult struct {
	Result model.CaloriesResult `json:"result"`
	Record *model.HistoryRecord `json:"record,omitempty"`
}

// Lookup fetches the calories for dish and records the answer in history.
// A rejected credential ends the session and returns calories.ErrUnauthorized.
// If the lookup succeeds but history cannot be saved, the result is returned with the error.
func (a *App) Lookup(ctx context.Context, dish string, servings float64) (*LookupResult, error) {
	if a.Session.Status() != session.StatusLoggedIn {
		return nil, ErrNotLoggedIn
	}

	res, err := a.Calories.Lookup(ctx, dish, servings)
	if errors.Is(err, calories.ErrUnauthorized) {
		a.logger.Warn("credential rejected, logging out")
		return nil, errors.Join(err, a.Logout(ctx))
	}
	if err != nil {
		return nil, err
	}

	out := &LookupResult{Result: *res}
	rec, err := a.History.Add(ctx, *res)
	if err != nil {
		return out, fmt.Errorf("record history: %w", err)
	}
	out.Record = rec
	return out, nil
}
