// Package app assembles the sellbot application: config, storage, the
// conversation wizard, the Telegram surface and the wallet-facing HTTP API.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rampforge/sellbot/core/bootstrap"
	corecmd "github.com/rampforge/sellbot/core/cmd"
	coretelegram "github.com/rampforge/sellbot/core/telegram"
	"github.com/rampforge/sellbot/core/telegram/state"
	"github.com/rampforge/sellbot/internal/bot"
	"github.com/rampforge/sellbot/internal/httpapi"
	"github.com/rampforge/sellbot/internal/quote"
	"github.com/rampforge/sellbot/internal/reconcile"
	"github.com/rampforge/sellbot/internal/store"
	"github.com/rampforge/sellbot/internal/verify"
	"github.com/rampforge/sellbot/internal/wizard"
)

// App is the fully wired application.
type App struct {
	cfg *Config

	store store.Store
	bot   *bot.Bot
	api   *httpapi.Server
}

// Bootstrap initializes infrastructure and wires the application graph.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	boot, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	st := store.NewPostgres(boot.DB)
	verifier := verify.NewClient(cfg.Verify)

	var quoter quote.Quoter
	if qc := quote.NewClient(cfg.Quote); qc.Enabled() {
		quoter = qc
	}

	wiz := wizard.New(wizard.Options{
		Store:           st,
		Verifier:        verifier,
		Quoter:          quoter,
		HandoffBase:     cfg.Handoff.BaseURL,
		MaxBankDistance: cfg.Banks.MaxDistance,
		VerifyTimeout:   time.Duration(cfg.Verify.TimeoutSeconds) * time.Second,
	})

	notifier := bot.NewNotifier()
	tgBot := bot.New(bot.Options{
		Core:     cfg.CoreConfig(),
		Store:    st,
		Wizard:   wiz,
		States:   state.NewMemoryManager(),
		Notifier: notifier,
	})

	reconciler := reconcile.New(st, notifier)
	api := httpapi.NewServer(st, reconciler, cfg.API.WebhookSecret, cfg.Handoff.TTL())

	return &App{
		cfg:   cfg,
		store: st,
		bot:   tgBot,
		api:   api,
	}, nil
}

// TelegramRunOptions exposes the bot wiring to the runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return a.bot.TelegramRunOptions()
}

// RunHTTP serves the wallet-facing API until ctx is cancelled.
func (a *App) RunHTTP(ctx context.Context) error {
	return a.api.Run(ctx, a.cfg.API)
}
