package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sitekit/viewscope"
	"github.com/sitekit/viewscope/pkg/config"
	"github.com/sitekit/viewscope/pkg/logger"
	"github.com/sitekit/viewscope/pkg/models"
	"github.com/sitekit/viewscope/pkg/store/gormstore"
	"github.com/sitekit/viewscope/pkg/store/memory"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath    string
	fixturePath   string
	statePath     string
	dsn           string
	websiteID     int64
	installModule string
	bypass        bool
	lang          string
}

// app is what a command runs against.
type app struct {
	views  *viewscope.Views
	memory *memory.Store
	closer func() error
	state  string
	env    viewscope.Env
	log    zerolog.Logger
}

func (o *options) open(ctx context.Context, cmd *cobra.Command) (*app, error) {
	if o.websiteID < 0 {
		return nil, fmt.Errorf("invalid website id %d: must not be negative", o.websiteID)
	}
	cfg := config.NewConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.dsn != "" {
		cfg.Postgres.DSN = o.dsn
	}
	logData, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	a := &app{log: logData.Logger, closer: logData.Close, state: o.statePath}
	a.env = viewscope.NewEnv(models.WebsiteID(o.websiteID))
	a.env.InstallModule = o.installModule
	a.env.BypassCOW = o.bypass
	a.env.Lang = o.lang

	var target seedTarget
	if cfg.Postgres.DSN != "" {
		pg, err := gormstore.NewStore(cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		closeLog := a.closer
		a.closer = func() error { return errors.Join(pg.Close(), closeLog()) }
		if err := pg.Migrate(ctx); err != nil {
			return nil, errors.Join(err, a.closer())
		}
		target = pg
	} else {
		if a.memory, err = loadState(o.statePath); err != nil {
			return nil, errors.Join(err, a.closer())
		}
		target = a.memory
	}

	if o.fixturePath != "" && (a.memory == nil || empty(a.memory)) {
		fx, err := ReadFixture(o.fixturePath)
		if err != nil {
			return nil, errors.Join(err, a.closer())
		}
		if err := fx.Seed(ctx, target); err != nil {
			return nil, errors.Join(fmt.Errorf("failed to seed fixture: %w", err), a.closer())
		}
	}

	a.views, err = viewscope.New(target, viewscope.WithConfig(cfg), viewscope.WithLogger(a.log))
	if err != nil {
		return nil, errors.Join(err, a.closer())
	}
	return a, nil
}

// save persists the in-memory store when a state file is in use.
func (a *app) save() error {
	if a.memory == nil || a.state == "" {
		return nil
	}
	f, err := os.Create(a.state)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	if err := a.memory.Dump(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *app) Close() error {
	return a.closer()
}

func newLogger(cfg *config.Config, stderr io.Writer) (*logger.LogData, error) {
	if cfg.Log.Path != "" {
		return cfg.NewLogger()
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logger.New().FromBuffer(stderr).WithLevel(level).Make()
}

// loadState reads the dump at path, or returns an empty store when there is
// none yet.
func loadState(path string) (*memory.Store, error) {
	if path == "" {
		return memory.New(), nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return memory.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}
	defer f.Close()
	return memory.Load(f)
}

func empty(s *memory.Store) bool {
	snap := s.Snapshot()
	return len(snap.Templates) == 0 && len(snap.Websites) == 0 && len(snap.Modules) == 0
}
