package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/platewise/internal/advisor"
	"github.com/hyperengineering/platewise/internal/config"
	"github.com/hyperengineering/platewise/internal/cooldown"
	"github.com/hyperengineering/platewise/internal/diary"
	"github.com/hyperengineering/platewise/internal/engine"
	"github.com/hyperengineering/platewise/internal/food"
	"github.com/hyperengineering/platewise/internal/moderation"
	"github.com/hyperengineering/platewise/internal/store"
)

// app holds the wired diary components shared by the server and the
// subcommands.
type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	rules    *food.Ruleset
	engine   *engine.Engine
	diary    *diary.Service
	narrator advisor.Narrator
	closers  []func() error
}

// newApp opens the store, picks the cooldown backend and builds the diary
// service from cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	rules, err := loadRuleset(cfg.Rules.RulesetPath)
	if err != nil {
		return nil, err
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	a := &app{cfg: cfg, store: st, rules: rules}

	cd, err := a.cooldownStore(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	slog.Info("cooldown backend initialized", "backend", cfg.Cooldown.Backend)

	a.engine = engine.New(rules, cd, engine.WithWindow(time.Duration(cfg.Rules.Window)))
	a.diary = diary.NewService(st, a.engine, diary.WithModerator(moderation.New(cfg.Moderation.Blocked)))

	if cfg.Advisor.APIKey != "" {
		a.narrator = advisor.NewOpenAINarrator(cfg.Advisor.APIKey, cfg.Advisor.Model)
	} else {
		a.narrator = advisor.NoopNarrator{}
	}
	slog.Info("advisor initialized", "model", a.narrator.ModelName())

	return a, nil
}

func (a *app) cooldownStore(ctx context.Context) (engine.CooldownStore, error) {
	switch a.cfg.Cooldown.Backend {
	case config.BackendMemory:
		return engine.NewMemoryCooldownStore(engine.CooldownState{}), nil
	case config.BackendRedis:
		rs, err := cooldown.NewRedisStore(ctx,
			a.cfg.Cooldown.RedisAddr,
			a.cfg.Cooldown.RedisPassword,
			a.cfg.Cooldown.RedisDB,
			a.cfg.Cooldown.RedisPrefix,
		)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		return rs, nil
	default:
		return a.store, nil
	}
}

// Close releases the cooldown backend and then the store.
func (a *app) Close() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("close error", "error", err)
		}
	}
	return a.store.Close()
}

func loadRuleset(path string) (*food.Ruleset, error) {
	if path == "" {
		return food.DefaultRuleset(), nil
	}
	rules, err := food.LoadRuleset(path)
	if err != nil {
		return nil, fmt.Errorf("load ruleset: %w", err)
	}
	slog.Info("ruleset loaded", "path", path)
	return rules, nil
}
