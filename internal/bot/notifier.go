package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/rampforge/sellbot/core/logger"
	"github.com/rampforge/sellbot/internal/domain"
)

// Notifier pushes reconciliation outcomes back to users over Telegram.
// It binds to the bot instance once the runtime is up; notifications that
// arrive before that are dropped with a warning rather than blocking the
// webhook response.
type Notifier struct {
	mu  sync.RWMutex
	bot *tele.Bot
}

// NewNotifier returns an unbound notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Bind attaches the live bot. Called from the runtime's OnStart hook.
func (n *Notifier) Bind(bot *tele.Bot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bot = bot
}

// NotifyCompleted tells the user their payout is done.
func (n *Notifier) NotifyCompleted(ctx context.Context, s *domain.SellSession) {
	text := fmt.Sprintf(
		"✅ Your sale is complete!\n\n%s USDC on %s was sold and %s (%s) has been credited.",
		domain.FormatAmount(s.Amount, decimalsFor(s.Network)), s.Network,
		s.Bank.BankName, s.Bank.AccountName)
	n.send(ctx, s, "reconcile.notify_completed", text)
}

// NotifyErrored tells the user their session failed.
func (n *Notifier) NotifyErrored(ctx context.Context, s *domain.SellSession) {
	text := "⚠️ Your sale could not be completed"
	if s.ErrorMessage != "" {
		text += ": " + s.ErrorMessage
	}
	text += "\n\nNo funds were moved. Send /sell to try again."
	n.send(ctx, s, "reconcile.notify_errored", text)
}

func (n *Notifier) send(ctx context.Context, s *domain.SellSession, event, text string) {
	n.mu.RLock()
	bot := n.bot
	n.mu.RUnlock()

	if bot == nil {
		logger.SVCReconcile.Warn("notifier not bound, notification dropped",
			slog.String("event", event),
			slog.String("session_id", s.ID),
			slog.Int64("user_id", s.UserID),
		)
		return
	}

	if _, err := bot.Send(&tele.User{ID: s.UserID}, text); err != nil {
		logger.Warn(ctx, "service.reconcile", event,
			slog.String("session_id", s.ID),
			slog.Int64("user_id", s.UserID),
			slog.String("err", logger.Sanitize(err.Error())),
		)
		return
	}
	logger.Info(ctx, "service.reconcile", event,
		slog.String("session_id", s.ID),
		slog.Int64("user_id", s.UserID),
	)
}
