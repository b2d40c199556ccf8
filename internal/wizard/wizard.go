package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rampforge/sellbot/core/logger"
	"github.com/rampforge/sellbot/internal/banks"
	"github.com/rampforge/sellbot/internal/domain"
	"github.com/rampforge/sellbot/internal/handoff"
	"github.com/rampforge/sellbot/internal/quote"
	"github.com/rampforge/sellbot/internal/store"
	"github.com/rampforge/sellbot/internal/verify"
)

// Options wires the wizard's collaborators.
type Options struct {
	Store    store.Store
	Verifier verify.Resolver
	// Quoter may be nil; the summary then omits the fiat estimate.
	Quoter quote.Quoter

	// HandoffBase is the public root of the wallet-connect web app.
	HandoffBase string
	// MaxBankDistance bounds fuzzy bank suggestions; 0 -> default.
	MaxBankDistance int
	// VerifyTimeout bounds the account resolution call; 0 -> 10s.
	VerifyTimeout time.Duration
}

// Wizard drives the /sell conversation. Every transition takes the whole
// conversation State and one Input and returns the next State plus the
// replies to send, so the Telegram layer stays a thin adapter.
type Wizard struct {
	store       store.Store
	verifier    verify.Resolver
	quoter      quote.Quoter
	handoffBase string
	maxDistance int
	verifyTO    time.Duration
}

// New builds a wizard.
func New(opts Options) *Wizard {
	maxDist := opts.MaxBankDistance
	if maxDist <= 0 {
		maxDist = banks.DefaultMaxDistance
	}
	verifyTO := opts.VerifyTimeout
	if verifyTO <= 0 {
		verifyTO = 10 * time.Second
	}
	return &Wizard{
		store:       opts.Store,
		verifier:    opts.Verifier,
		quoter:      opts.Quoter,
		handoffBase: opts.HandoffBase,
		maxDistance: maxDist,
		verifyTO:    verifyTO,
	}
}

// Start opens a fresh conversation at the amount step.
func (w *Wizard) Start(_ context.Context, userID int64) Result {
	logger.SVCWizard.Info("sell flow started",
		slog.String("event", "wizard.start"),
		slog.Int64("user_id", userID),
	)
	return Result{
		State: State{Step: StepAmount},
		Replies: []Reply{{
			Text:    "How much USDC would you like to sell?",
			Buttons: cancelRow(),
		}},
	}
}

// Handle feeds one user interaction into the conversation.
func (w *Wizard) Handle(ctx context.Context, userID int64, st State, in Input) (Result, error) {
	if isCancel(in) {
		logger.SVCWizard.Info("sell flow cancelled",
			slog.String("event", "wizard.cancel"),
			slog.Int64("user_id", userID),
			slog.String("step", string(st.Step)),
		)
		return Result{
			Aborted: true,
			Replies: []Reply{{Text: "Sell cancelled. Nothing was created. Send /sell to start again."}},
		}, nil
	}

	if st.InSubFlow() {
		return w.handleSub(ctx, userID, st, in)
	}

	switch st.Step {
	case StepAmount:
		return w.handleAmount(st, in), nil
	case StepNetwork:
		return w.handleNetwork(ctx, userID, st, in)
	case StepBank:
		return w.handleBank(ctx, userID, st, in)
	default:
		return Result{}, fmt.Errorf("wizard: unknown step %q", st.Step)
	}
}

func isCancel(in Input) bool {
	if in.Callback == CallbackCancel {
		return true
	}
	t := strings.ToLower(strings.TrimSpace(in.Text))
	return t == "cancel" || t == "exit" || t == "/cancel"
}

func cancelRow() [][]Button {
	return [][]Button{{{Label: "❌ Cancel", Key: CallbackCancel}}}
}

func (w *Wizard) handleAmount(st State, in Input) Result {
	if in.IsCallback() {
		return reprompt(st, "Please type the amount of USDC to sell, e.g. 10 or 25.5.")
	}
	amount, err := domain.ParseAmount(in.Text)
	if err != nil {
		return reprompt(st, "That doesn't look like a valid amount. Enter a positive number, e.g. 10 or 25.5.")
	}

	st.Draft.AmountText = amount
	st.Step = StepNetwork
	return Result{
		State: st,
		Replies: []Reply{{
			Text:    fmt.Sprintf("Selling %s USDC. Which network is it on?", amount),
			Buttons: networkButtons(),
		}},
	}
}

func networkButtons() [][]Button {
	nets := domain.Networks()
	row := make([]Button, 0, len(nets))
	for _, n := range nets {
		row = append(row, Button{Label: n.Name, Key: CallbackNetwork, Payload: n.Name})
	}
	return [][]Button{row[:2], row[2:], {{Label: "❌ Cancel", Key: CallbackCancel}}}
}

func (w *Wizard) handleNetwork(ctx context.Context, userID int64, st State, in Input) (Result, error) {
	if in.Callback != CallbackNetwork {
		return reprompt(st, "Pick one of the network buttons above, or cancel."), nil
	}
	n, ok := domain.NetworkByName(in.Payload)
	if !ok {
		return reprompt(st, "That network isn't supported. Pick one of the buttons above."), nil
	}

	units, err := domain.ScaleAmount(st.Draft.AmountText, n.Decimals)
	if err != nil {
		// The entered amount has too much precision for this asset.
		st.Step = StepAmount
		st.Draft = Draft{}
		return Result{
			State: st,
			Replies: []Reply{{
				Text:    fmt.Sprintf("USDC on %s supports at most %d decimal places. Enter the amount again.", n.Name, n.Decimals),
				Buttons: cancelRow(),
			}},
		}, nil
	}

	st.Draft.Network = n.Name
	st.Draft.ChainID = n.ChainID
	st.Draft.Asset = n.Asset
	st.Draft.AmountUnits = units
	st.Step = StepBank

	logger.SVCWizard.Debug("network selected",
		slog.String("event", "wizard.network"),
		slog.Int64("user_id", userID),
		slog.String("network", n.Name),
		slog.Int64("amount_units", units),
	)

	return w.promptBank(ctx, userID, st)
}

// promptBank offers the saved payout account when one exists, otherwise
// drops straight into the bank-linking sub-flow.
func (w *Wizard) promptBank(ctx context.Context, userID int64, st State) (Result, error) {
	acc, err := w.store.GetBankAccount(ctx, userID)
	switch {
	case err == nil:
		return Result{
			State: st,
			Replies: []Reply{{
				Text: fmt.Sprintf("Where should the money go?\n\nSaved account:\n%s\n%s (%s)",
					acc.BankName, maskAccount(acc.AccountNumber), acc.AccountName),
				Buttons: [][]Button{
					{{Label: "✅ Use saved account", Key: CallbackBankUseSaved}},
					{{Label: "➕ Add a new account", Key: CallbackBankAddNew}},
					{{Label: "❌ Cancel", Key: CallbackCancel}},
				},
			}},
		}, nil
	case errors.Is(err, store.ErrNotFound):
		return enterSubFlow(st), nil
	default:
		return Result{}, fmt.Errorf("wizard: load saved bank: %w", err)
	}
}

func (w *Wizard) handleBank(ctx context.Context, userID int64, st State, in Input) (Result, error) {
	switch in.Callback {
	case CallbackBankUseSaved:
		acc, err := w.store.GetBankAccount(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return enterSubFlow(st), nil
			}
			return Result{}, fmt.Errorf("wizard: load saved bank: %w", err)
		}
		st.Draft.Bank = acc.Details()
		return w.commit(ctx, userID, st)
	case CallbackBankAddNew:
		return enterSubFlow(st), nil
	default:
		return reprompt(st, "Use the buttons above to choose a payout account, or cancel."), nil
	}
}

// commit turns the finished draft into a pending sell session and hands
// the user the wallet-connect link. Conversation state is discarded by
// the caller once Done is set.
func (w *Wizard) commit(ctx context.Context, userID int64, st State) (Result, error) {
	st.Step = StepSummary
	d := st.Draft
	s := &domain.SellSession{
		ID:      uuid.NewString(),
		UserID:  userID,
		Amount:  d.AmountUnits,
		Asset:   d.Asset,
		ChainID: d.ChainID,
		Network: d.Network,
		Bank:    d.Bank,
		Status:  domain.StatusPending,
	}
	if err := w.store.CreateSession(ctx, s); err != nil {
		return Result{}, fmt.Errorf("wizard: create session: %w", err)
	}

	url := handoff.BuildURL(w.handoffBase, userID, s.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "Here's your sell order:\n\n")
	fmt.Fprintf(&b, "Amount: %s USDC\n", domain.FormatAmount(s.Amount, decimalsFor(s.Network)))
	fmt.Fprintf(&b, "Network: %s\n", s.Network)
	fmt.Fprintf(&b, "Payout: %s, %s (%s)\n", s.Bank.BankName, maskAccount(s.Bank.AccountNumber), s.Bank.AccountName)
	if est, ok := w.estimate(ctx, s); ok {
		fmt.Fprintf(&b, "Estimated payout: %s %s\n", est.Fiat, est.Currency)
	}
	fmt.Fprintf(&b, "\nConnect your wallet to continue:\n%s", url)

	logger.SVCWizard.Info("sell session committed",
		slog.String("event", "wizard.commit"),
		slog.Int64("user_id", userID),
		slog.String("session_id", s.ID),
		slog.String("network", s.Network),
		slog.Int64("amount_units", s.Amount),
	)

	return Result{
		State:      st,
		Done:       true,
		Session:    s,
		HandoffURL: url,
		Replies:    []Reply{{Text: b.String()}},
	}, nil
}

// estimate fetches a fiat quote for the summary. Quote failures are
// logged and swallowed; the wizard never blocks on the rates feed.
func (w *Wizard) estimate(ctx context.Context, s *domain.SellSession) (quote.Estimate, bool) {
	if w.quoter == nil {
		return quote.Estimate{}, false
	}
	est, err := w.quoter.Estimate(ctx, s.Network, s.Amount)
	if err != nil {
		logger.SVCQuote.Warn("estimate unavailable",
			slog.String("event", "quote.estimate"),
			slog.String("session_id", s.ID),
			slog.String("err", err.Error()),
		)
		return quote.Estimate{}, false
	}
	return est, true
}

func decimalsFor(network string) int {
	if n, ok := domain.NetworkByName(network); ok {
		return n.Decimals
	}
	return 6
}

func maskAccount(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

func reprompt(st State, text string) Result {
	return Result{
		State:   st,
		Replies: []Reply{{Text: text, Buttons: cancelRow()}},
	}
}
