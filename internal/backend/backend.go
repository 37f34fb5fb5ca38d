// Package backend selects and constructs the persistence backend from
// configuration. All three backends satisfy the same store port, so the
// ledger coordinator is oblivious to which one is active.
package backend

import (
	"context"
	"fmt"

	"finvoice/internal/config"
	"finvoice/internal/log"
	"finvoice/internal/store"
	"finvoice/internal/store/memory"
	"finvoice/internal/store/remote"
	"finvoice/internal/store/sqlite"
)

type Type string

const (
	Memory Type = "memory"
	SQLite Type = "sqlite"
	Remote Type = "remote"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite, Remote:
		return true
	default:
		return false
	}
}

// Types returns every valid backend type.
func Types() []Type {
	return []Type{Memory, SQLite, Remote}
}

// CleanupFunc releases the backend's resources.
type CleanupFunc func() error

// Result carries the constructed store and its optional cleanup.
type Result struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Factory builds stores from configuration.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create builds the backend named by cfg.DataBackend.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch t {
	case SQLite:
		return f.createSQLite(cfg)
	case Remote:
		return f.createRemote(cfg)
	default:
		return f.createMemory()
	}
}

func (f *Factory) createSQLite(cfg *config.Config) (*Result, error) {
	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite repository: %w", err)
	}
	f.logger.Info("initialized sqlite backend", log.FieldBackend, SQLite.String(), "db_path", cfg.SQLiteDBPath)
	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

func (f *Factory) createRemote(cfg *config.Config) (*Result, error) {
	client, err := remote.New(cfg.RemoteURL, remote.StaticToken(cfg.RemoteToken))
	if err != nil {
		return nil, fmt.Errorf("initialize remote client: %w", err)
	}
	f.logger.Info("initialized remote backend", log.FieldBackend, Remote.String(), "url", cfg.RemoteURL)
	return &Result{Store: client}, nil
}

func (f *Factory) createMemory() (*Result, error) {
	f.logger.Info("initialized memory backend", log.FieldBackend, Memory.String())
	return &Result{Store: memory.New()}, nil
}
