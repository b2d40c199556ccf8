// Package bot is the Telegram surface of the sell flow: command and
// callback registration, the FSM bridge into the conversation wizard,
// and the notifier used by the webhook reconciler.
package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/rampforge/sellbot/core/config"
	tg "github.com/rampforge/sellbot/core/telegram"
	"github.com/rampforge/sellbot/core/telegram/commands"
	"github.com/rampforge/sellbot/core/telegram/middleware"
	"github.com/rampforge/sellbot/core/telegram/router"
	"github.com/rampforge/sellbot/core/telegram/state"
	"github.com/rampforge/sellbot/internal/store"
	"github.com/rampforge/sellbot/internal/wizard"
)

// StateSelling marks a user inside the /sell conversation.
const StateSelling state.State = "sell_flow"

// Options wires the bot surface.
type Options struct {
	Core     *coreconfig.Config
	Store    store.Store
	Wizard   *wizard.Wizard
	States   state.Manager
	Notifier *Notifier
}

// Bot holds the Telegram-facing application.
type Bot struct {
	core     *coreconfig.Config
	store    store.Store
	wizard   *wizard.Wizard
	states   state.Manager
	notifier *Notifier
	registry *tg.Registry
}

// New assembles the bot: commands, callbacks, and the wizard FSM state.
func New(opts Options) *Bot {
	b := &Bot{
		core:     opts.Core,
		store:    opts.Store,
		wizard:   opts.Wizard,
		states:   opts.States,
		notifier: opts.Notifier,
		registry: tg.NewRegistry(),
	}
	if b.states == nil {
		b.states = state.NewMemoryManager()
	}

	b.registerCommands()
	b.registerCallbacks()
	state.RegisterHandler(StateSelling, b.handleWizardText)

	return b
}

func (b *Bot) registerCommands() {
	b.registry.RegisterCommand("/start", commands.Command{
		Handler:     b.handleStart,
		Description: "What this bot does",
	})
	b.registry.RegisterCommand("/sell", commands.Command{
		Handler:     b.handleSell,
		Description: "Sell USDC for a bank payout",
	})
	b.registry.RegisterCommand("/cancel", commands.Command{
		Handler:     b.handleCancel,
		Description: "Cancel the current sell",
	})
	b.registry.RegisterCommand("/mybank", commands.Command{
		Handler:     b.handleMyBank,
		Description: "Show your saved payout account",
	})
	b.registry.RegisterCommand("/sessions", commands.Command{
		Handler:   b.handleSessions,
		AdminOnly: true,
		Hidden:    true,
	})
}

func (b *Bot) registerCallbacks() {
	// Wizard buttons only mean something while the conversation runs;
	// stale presses get an explanatory reply instead of silence.
	guard := middleware.State(stateStrings{b.states}, string(StateSelling), b.handleStaleCallback)

	for _, key := range []string{
		wizard.CallbackNetwork,
		wizard.CallbackBankUseSaved,
		wizard.CallbackBankAddNew,
		wizard.CallbackBankConfirm,
		wizard.CallbackCancel,
	} {
		k := key
		_ = b.registry.RegisterCallback(k, guard(func(c tele.Context) error {
			return b.handleWizardCallback(c, k)
		}))
	}
}

// stateStrings adapts the typed FSM manager to the middleware interface.
type stateStrings struct{ m state.Manager }

func (s stateStrings) GetState(userID int64) string {
	return string(s.m.GetState(userID))
}

// TelegramRunOptions builds the runtime wiring consumed by the runner.
func (b *Bot) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(b.registry, router.CommandRouteOptions{
		AdminID: b.core.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(b.states, b.registry, router.TextOptions{
		UnknownText: b.handleUnknownText,
	})...)
	routes = append(routes, router.CallbackRoute(b.registry, router.CallbackOptions{}))

	return tg.RunOptions{
		Config:      b.core,
		Registry:    b.registry,
		Middlewares: tg.DefaultMiddlewares(b.core, nil),
		Routes:      routes,
		OnStart: func(_ context.Context, rt tg.Runtime) error {
			if b.notifier != nil {
				b.notifier.Bind(rt.Bot)
			}
			return nil
		},
	}, nil
}
