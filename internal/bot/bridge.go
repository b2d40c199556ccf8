package bot

import (
	"log/slog"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/rampforge/sellbot/core/logger"
	"github.com/rampforge/sellbot/core/telegram/callbacks"
	tghelpers "github.com/rampforge/sellbot/core/telegram/helpers"
	"github.com/rampforge/sellbot/core/telegram/keyboard"
	"github.com/rampforge/sellbot/internal/wizard"
)

// wizardStateKey is the TempData slot holding the serialized conversation.
const wizardStateKey = "sell_wizard"

// loadWizardState fetches the user's conversation state from the manager.
func (b *Bot) loadWizardState(userID int64) (wizard.State, bool) {
	if b.states.GetState(userID) != StateSelling {
		return wizard.State{}, false
	}
	raw, ok := b.states.GetTemp(userID, wizardStateKey)
	if !ok {
		return wizard.State{}, false
	}
	st, ok := raw.(wizard.State)
	return st, ok
}

// applyResult persists the next conversation state, deletes stale prompts
// and sends the replies. Done and Aborted both drop the conversation.
func (b *Bot) applyResult(c tele.Context, userID int64, res wizard.Result) error {
	if res.Done || res.Aborted {
		b.states.Clear(userID)
	} else {
		b.states.SetState(userID, StateSelling)
		b.states.SetTemp(userID, wizardStateKey, res.State)
	}

	b.deleteMessages(c, res.Cleanup)

	for _, reply := range res.Replies {
		var opts *tele.SendOptions
		if markup := buttonsMarkup(reply.Buttons); markup != nil {
			opts = &tele.SendOptions{ReplyMarkup: markup}
		}
		if err := tghelpers.SendText(c, reply.Text, optsOrNone(opts)...); err != nil {
			return err
		}
	}
	return nil
}

// deleteMessages removes answered prompts from the chat. Deletion is best
// effort; Telegram refuses deletes on old messages and that is fine.
func (b *Bot) deleteMessages(c tele.Context, ids []int) {
	chat := c.Chat()
	if chat == nil || len(ids) == 0 {
		return
	}
	for _, id := range ids {
		msg := tele.StoredMessage{MessageID: strconv.Itoa(id), ChatID: chat.ID}
		if err := c.Bot().Delete(msg); err != nil {
			logger.TG.Debug("prompt cleanup failed",
				slog.String("event", "tg.delete"),
				slog.Int("message_id", id),
				slog.String("err", err.Error()),
			)
		}
	}
}

func optsOrNone(opts *tele.SendOptions) []*tele.SendOptions {
	if opts == nil {
		return nil
	}
	return []*tele.SendOptions{opts}
}

// buttonsMarkup converts wizard buttons into a Telebot inline keyboard.
func buttonsMarkup(rows [][]wizard.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, btn := range row {
			r = append(r, keyboard.InlineBtn{Text: btn.Label, Unique: btn.Key, Data: btn.Payload})
		}
		kb = append(kb, r)
	}
	return keyboard.InlineButtonsRows(kb...)
}

// handleWizardText feeds plain text into the running conversation. It is
// the FSM handler for StateSelling.
func (b *Bot) handleWizardText(c tele.Context) error {
	userID := c.Sender().ID
	st, ok := b.loadWizardState(userID)
	if !ok {
		b.states.Clear(userID)
		return tghelpers.SendText(c, "That conversation has expired. Send /sell to start again.")
	}

	in := wizard.Input{Text: c.Text()}
	if msg := c.Message(); msg != nil {
		in.MessageID = msg.ID
	}

	res, err := b.wizard.Handle(tghelpers.BuildContext(c), userID, st, in)
	if err != nil {
		return err
	}
	return b.applyResult(c, userID, res)
}

// handleStaleCallback answers buttons pressed after their conversation ended.
func (b *Bot) handleStaleCallback(c tele.Context) error {
	return tghelpers.SendText(c, "That button belongs to a finished conversation. Send /sell to start again.")
}

// handleWizardCallback feeds a pressed button into the running conversation.
func (b *Bot) handleWizardCallback(c tele.Context, key string) error {
	userID := c.Sender().ID
	st, ok := b.loadWizardState(userID)
	if !ok {
		b.states.Clear(userID)
		return tghelpers.SendText(c, "That conversation has expired. Send /sell to start again.")
	}

	in := wizard.Input{
		Callback: key,
		Payload:  callbacks.CallbackPayload(c),
	}
	if cb := c.Callback(); cb != nil && cb.Message != nil {
		in.MessageID = cb.Message.ID
	}

	res, err := b.wizard.Handle(tghelpers.BuildContext(c), userID, st, in)
	if err != nil {
		return err
	}
	return b.applyResult(c, userID, res)
}
