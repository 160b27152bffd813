package app

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/raysh454/headprobe/internal/history"
	"github.com/raysh454/headprobe/internal/logging"
	"github.com/raysh454/headprobe/internal/webclient"
)

// Application is the runtime state container: config plus the shared
// services built from it. Pass it to the CLI and server rather than using
// package-level variables.
type Application struct {
	Config *Config
	Logger logging.Logger
	Client webclient.WebClient
	Prober *Prober

	db *sql.DB
}

// NewApplication builds the logger, transport, optional history store and
// prober described by cfg. Call Close when done.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Component: "headprobe",
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return NewApplicationWithLogger(cfg, logger)
}

// NewApplicationWithLogger is NewApplication with a caller-supplied logger.
func NewApplicationWithLogger(cfg *Config, logger logging.Logger) (*Application, error) {
	client, err := webclient.NewWebClient(cfg.WebClient, logger)
	if err != nil {
		return nil, fmt.Errorf("building webclient: %w", err)
	}

	a := &Application{Config: cfg, Logger: logger, Client: client}

	var store *history.Store
	if cfg.StoragePath != "" {
		a.db, err = history.Open(cfg.StoragePath)
		if err != nil {
			client.Close()
			return nil, err
		}
		store, err = history.NewStore(a.db, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating history store: %w", err)
		}
		logger.Info("probe history enabled", logging.Field{Key: "path", Value: cfg.StoragePath})
	}

	a.Prober = NewProber(cfg.Network, client, store, logger)
	return a, nil
}

// Close releases the transport and the history database.
func (a *Application) Close() error {
	if a == nil {
		return errors.New("application is nil")
	}
	var errs []error
	if a.Client != nil {
		errs = append(errs, a.Client.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
