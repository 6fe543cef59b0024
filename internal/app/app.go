// Package app constructs and wires the console's long-lived components.
package app

import (
	"fmt"

	"faceconsole/internal/api"
	"faceconsole/internal/config"
	"faceconsole/internal/logger"
	"faceconsole/internal/session"
	"faceconsole/internal/store"
)

// App owns the session context for one process: configuration, logging,
// durable state, the API client and the session manager. Constructed once
// at start, torn down on exit.
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Store   *store.Store
	API     *api.Client
	Session *session.Manager
}

// New loads configuration and wires the components.
func New() (*App, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.LogDirectory)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	sess := session.NewManager(st, client, log)

	return &App{
		Config:  cfg,
		Logger:  log,
		Store:   st,
		API:     client,
		Session: sess,
	}, nil
}

// Close releases held resources.
func (a *App) Close() error {
	return a.Store.Close()
}
