package bot

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/rampforge/sellbot/core/telegram/format"
	tghelpers "github.com/rampforge/sellbot/core/telegram/helpers"
	"github.com/rampforge/sellbot/internal/domain"
	"github.com/rampforge/sellbot/internal/store"
	"github.com/rampforge/sellbot/internal/wizard"
)

func (b *Bot) handleStart(c tele.Context) error {
	return tghelpers.SendText(c,
		"Welcome! I turn your USDC into a bank transfer.\n\n"+
			"/sell - start a sale\n"+
			"/mybank - show your saved payout account\n"+
			"/cancel - abandon the current sale")
}

// handleSell opens a fresh conversation. A sale already in progress is
// discarded first so the user never ends up with two interleaved flows.
func (b *Bot) handleSell(c tele.Context) error {
	userID := c.Sender().ID
	b.states.Clear(userID)

	res := b.wizard.Start(tghelpers.BuildContext(c), userID)
	return b.applyResult(c, userID, res)
}

func (b *Bot) handleCancel(c tele.Context) error {
	userID := c.Sender().ID
	st, ok := b.loadWizardState(userID)
	if !ok {
		b.states.Clear(userID)
		return tghelpers.SendText(c, "Nothing to cancel.")
	}

	res, err := b.wizard.Handle(tghelpers.BuildContext(c), userID, st, wizard.Input{Text: "/cancel"})
	if err != nil {
		return err
	}
	return b.applyResult(c, userID, res)
}

func (b *Bot) handleMyBank(c tele.Context) error {
	userID := c.Sender().ID
	acc, err := b.store.GetBankAccount(tghelpers.BuildContext(c), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return tghelpers.SendText(c, "You have no saved payout account yet. It gets saved the first time you complete /sell.")
		}
		return err
	}
	return tghelpers.SendMD(c, fmt.Sprintf("*Your saved payout account*\n\n%s\n`%s`\n%s",
		format.EscapeMarkdown(acc.BankName), acc.AccountNumber, format.EscapeMarkdown(acc.AccountName)))
}

// handleSessions lists recent sell sessions. Admin only, wired through
// the command router's access middleware.
func (b *Bot) handleSessions(c tele.Context) error {
	sessions, err := b.store.RecentSessions(tghelpers.BuildContext(c), 10)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return tghelpers.SendText(c, "No sessions yet.")
	}

	var sb strings.Builder
	sb.WriteString("Recent sessions:\n")
	for _, s := range sessions {
		fmt.Fprintf(&sb, "\n%s\nuser %d | %s USDC on %s | %s\n",
			s.ID, s.UserID, domain.FormatAmount(s.Amount, decimalsFor(s.Network)), s.Network, s.Status)
	}
	return tghelpers.SendText(c, sb.String())
}

func decimalsFor(network string) int {
	if n, ok := domain.NetworkByName(network); ok {
		return n.Decimals
	}
	return 6
}

func (b *Bot) handleUnknownText(c tele.Context) error {
	return tghelpers.SendText(c, "I didn't catch that. Send /sell to sell USDC, or /start for help.")
}
