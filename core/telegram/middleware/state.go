package middleware

import (
	"github.com/rampforge/sellbot/core/logger"
	tghelpers "github.com/rampforge/sellbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// StateGetter is the minimal interface required from an FSM manager.
type StateGetter interface {
	GetState(userID int64) string
}

// State returns a middleware that passes updates through only when the
// user is in the expected FSM state. A mismatch runs onMismatch when
// provided (useful for stale inline buttons), otherwise the update is
// silently dropped.
func State(mgr StateGetter, expectedState string, onMismatch ...tele.HandlerFunc) tele.MiddlewareFunc {
	var mismatch tele.HandlerFunc
	if len(onMismatch) > 0 {
		mismatch = onMismatch[0]
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := c.Sender().ID
			currentState := mgr.GetState(userID)
			ctx := tghelpers.BuildContext(c)
			if currentState == expectedState {
				return next(c)
			}
			logger.TG.LogAttrs(ctx, slog.LevelDebug, "fsm.skip",
				slog.Int64("user_id", userID),
				slog.String("state", currentState),
				slog.String("expected", expectedState),
			)
			if mismatch != nil {
				return mismatch(c)
			}
			return nil
		}
	}
}
