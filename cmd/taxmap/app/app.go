// Package app provides the application context and dependency management
// for the taxmap CLI. It centralizes configuration, logging, and the
// state-code table behind a single injectable struct.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/taxmap/pkg/errors"
	"github.com/agentstation/taxmap/pkg/jurisdiction"
)

// App represents the taxmap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// State-code table (lazy-loaded, singleton)
	mu    sync.RWMutex
	table *jurisdiction.Table
}

// New creates a new App instance with the given version information.
// The app is initialized with default configuration that can be
// customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.NewConfigError("app", "failed to load configuration", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the output format selected by flag or config.
// Empty means auto-detect from the terminal.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// StateTable returns the state-code table, loading it lazily from the
// configured YAML path or falling back to the built-in table. Thread-safe;
// only one table is ever loaded per run.
func (a *App) StateTable() (*jurisdiction.Table, error) {
	a.mu.RLock()
	if a.table != nil {
		t := a.table
		a.mu.RUnlock()
		return t, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.table != nil {
		return a.table, nil
	}

	if a.config.StateTable == "" {
		a.table = jurisdiction.DefaultTable()
		return a.table, nil
	}

	table, err := jurisdiction.LoadTable(a.config.StateTable)
	if err != nil {
		return nil, err
	}
	a.table = table
	return a.table, nil
}

// Shutdown performs graceful shutdown of the application.
func (a *App) Shutdown(_ context.Context) error {
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStateTable sets a custom state-code table (useful for testing).
func WithStateTable(table *jurisdiction.Table) Option {
	return func(a *App) error {
		a.table = table
		return nil
	}
}
