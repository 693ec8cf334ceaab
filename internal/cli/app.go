// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jeranaias/rigrun-tools/internal/audit"
	"github.com/jeranaias/rigrun-tools/internal/cache"
	"github.com/jeranaias/rigrun-tools/internal/calc"
	"github.com/jeranaias/rigrun-tools/internal/config"
	"github.com/jeranaias/rigrun-tools/internal/docstore"
	"github.com/jeranaias/rigrun-tools/internal/offline"
	"github.com/jeranaias/rigrun-tools/internal/tools"
)

// =============================================================================
// APP - SHARED WIRING FOR ALL COMMANDS
// =============================================================================

// App is everything a command needs to run tools.
type App struct {
	Config     *config.Config
	Location   *time.Location
	Docs       *docstore.Store
	Cache      *cache.Store
	History    *audit.History // nil when history is disabled or unavailable
	Dispatcher *tools.Dispatcher
}

// loadConfig resolves the configuration and applies the global flags.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	config.LoadEnvFiles()

	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromPath(config.ExpandHome(opts.configPath))
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	if opts.dataDir != "" {
		cfg.Data.Dir = opts.dataDir
	}
	if opts.tz != "" {
		cfg.Schedule.Timezone = opts.tz
	}
	if opts.dataDir != "" || opts.tz != "" {
		if err := cfg.Validate(); err != nil {
			return nil, &ConfigError{Err: err}
		}
	}
	return cfg, nil
}

// openApp loads the configuration and wires the stores and the dispatcher.
func openApp(opts *rootOptions) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func newApp(cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	docs, err := docstore.Open(cfg.DataDir(), docstore.Options{})
	if err != nil {
		return nil, fmt.Errorf("open data directory: %w", err)
	}

	app := &App{
		Config:   cfg,
		Location: loc,
		Docs:     docs,
		Cache:    cache.New(cache.Options{MaxEntries: cfg.Cache.MaxEntries}),
	}

	if cfg.History.Enabled {
		app.History = openHistory(cfg)
	}

	reg, err := tools.NewRegistry(tools.Builtins(toolDeps(cfg, loc))...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}

	dopts := tools.Options{
		Cache:   app.Cache,
		Docs:    docs,
		Timeout: cfg.ToolTimeout(),
	}
	// a nil *audit.History must not become a non-nil Recorder
	if app.History != nil {
		dopts.Recorder = app.History
	}
	app.Dispatcher, err = tools.NewDispatcher(reg, dopts)
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// openHistory opens and prunes the history database. Failure disables
// history for this run.
func openHistory(cfg *config.Config) *audit.History {
	h, err := audit.Open(cfg.HistoryPath())
	if err != nil {
		log.Printf("HISTORY_DISABLED | path=%s error=%v", cfg.HistoryPath(), err)
		return nil
	}
	if days := cfg.History.RetentionDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if n, err := h.Prune(ctx, cutoff); err != nil {
			log.Printf("HISTORY_PRUNE_ERROR | error=%v", err)
		} else if n > 0 {
			log.Printf("HISTORY_PRUNED | removed=%d retention_days=%d", n, days)
		}
	}
	return h
}

// toolDeps maps configuration onto the built-in tool dependencies.
func toolDeps(cfg *config.Config, loc *time.Location) tools.Deps {
	timeout := cfg.ToolTimeout()
	return tools.Deps{
		Location: loc,
		Evaluator: calc.Evaluator{
			MaxLength: cfg.Calc.MaxLength,
			MaxDepth:  cfg.Calc.MaxDepth,
		},
		UserAgent: cfg.Tools.UserAgent,
		Offline:   offline.Policy{Enabled: cfg.Tools.Offline},
		Weather: tools.WeatherConfig{
			APIKey:         cfg.Tools.Weather.APIKey,
			BaseURL:        cfg.Tools.Weather.BaseURL,
			Units:          cfg.Tools.Weather.Units,
			RequestsPerMin: cfg.Tools.Weather.RequestsPerMin,
			TTL:            time.Duration(cfg.Tools.Weather.TTLMinutes) * time.Minute,
			Timeout:        timeout,
		},
		Wikipedia: tools.WikipediaConfig{
			BaseURL:        cfg.Tools.Wikipedia.BaseURL,
			RequestsPerMin: cfg.Tools.Wikipedia.RequestsPerMin,
			TTL:            time.Duration(cfg.Tools.Wikipedia.TTLMinutes) * time.Minute,
			Timeout:        timeout,
		},
	}
}

// Invoke runs one tool through the dispatcher.
func (a *App) Invoke(ctx context.Context, name string, args map[string]any) (tools.Result, error) {
	return a.Dispatcher.Invoke(ctx, name, args)
}

// Close releases the history database.
func (a *App) Close() {
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			log.Printf("HISTORY_CLOSE_ERROR | error=%v", err)
		}
		a.History = nil
	}
}
