package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rampforge/sellbot/core/logger"
	"github.com/rampforge/sellbot/internal/banks"
	"github.com/rampforge/sellbot/internal/domain"
)

// enterSubFlow begins the nested bank-linking flow at the name step.
func enterSubFlow(st State) Result {
	st.Sub = &SubState{Step: SubStepName}
	return Result{
		State: st,
		Replies: []Reply{{
			Text:    "Which bank is the account with? Type the bank name.",
			Buttons: cancelRow(),
		}},
	}
}

// handleSub routes input inside the bank-linking sub-flow. The sub-flow
// either hands a completed BankDetails back to the parent or aborts the
// whole conversation; it never leaves the parent waiting.
func (w *Wizard) handleSub(ctx context.Context, userID int64, st State, in Input) (Result, error) {
	switch st.Sub.Step {
	case SubStepName:
		return w.subName(userID, st, in), nil
	case SubStepSuggest:
		return w.subSuggest(st, in), nil
	case SubStepAccount:
		return w.subAccount(ctx, userID, st, in)
	case SubStepConfirm:
		return w.subConfirm(ctx, userID, st, in)
	default:
		return Result{}, fmt.Errorf("wizard: unknown sub step %q", st.Sub.Step)
	}
}

func (w *Wizard) subName(userID int64, st State, in Input) Result {
	if in.IsCallback() {
		return reprompt(st, "Type the bank name, e.g. GTBank or Zenith Bank.")
	}

	match, ok := banks.Resolve(in.Text)
	if !ok {
		return reprompt(st, "Type the bank name, e.g. GTBank or Zenith Bank.")
	}

	logger.SVCBanks.Debug("bank name resolved",
		slog.String("event", "banks.resolve"),
		slog.Int64("user_id", userID),
		slog.String("bank_code", match.Bank.Code),
		slog.Int("distance", match.Distance),
	)

	switch {
	case match.Exact():
		st.Sub.BankName = match.Bank.Name
		st.Sub.BankCode = match.Bank.Code
		st.Sub.Step = SubStepAccount
		return Result{
			State: st,
			Replies: []Reply{{
				Text:    fmt.Sprintf("%s. Now enter the 10-digit account number.", match.Bank.Name),
				Buttons: cancelRow(),
			}},
		}
	case match.Distance <= w.maxDistance:
		st.Sub.CandidateName = match.Bank.Name
		st.Sub.CandidateCode = match.Bank.Code
		st.Sub.Step = SubStepSuggest
		st.Sub.PromptMessageID = in.MessageID
		return Result{
			State: st,
			Replies: []Reply{{
				Text: fmt.Sprintf("Did you mean %s?", match.Bank.Name),
				Buttons: [][]Button{
					{
						{Label: "✅ Yes", Key: CallbackBankConfirm, Payload: "yes"},
						{Label: "❌ No", Key: CallbackBankConfirm, Payload: "no"},
					},
					{{Label: "❌ Cancel", Key: CallbackCancel}},
				},
			}},
		}
	default:
		return reprompt(st, "I couldn't find that bank. Supported banks:\n"+bankList())
	}
}

func bankList() string {
	all := banks.All()
	names := make([]string, 0, len(all))
	for _, b := range all {
		names = append(names, "• "+b.Name)
	}
	return strings.Join(names, "\n")
}

func (w *Wizard) subSuggest(st State, in Input) Result {
	if in.Callback != CallbackBankConfirm {
		return reprompt(st, "Use the buttons to confirm the bank, or cancel.")
	}
	// Once answered, both the suggestion prompt (the callback's message)
	// and the misspelled name that triggered it leave the chat.
	cleanup := suggestionCleanup(st.Sub, in)
	switch in.Payload {
	case "yes":
		st.Sub.BankName = st.Sub.CandidateName
		st.Sub.BankCode = st.Sub.CandidateCode
		st.Sub.CandidateName = ""
		st.Sub.CandidateCode = ""
		st.Sub.PromptMessageID = 0
		st.Sub.Step = SubStepAccount
		return Result{
			State: st,
			Replies: []Reply{{
				Text:    fmt.Sprintf("%s. Now enter the 10-digit account number.", st.Sub.BankName),
				Buttons: cancelRow(),
			}},
			Cleanup: cleanup,
		}
	case "no":
		st.Sub = &SubState{Step: SubStepName}
		return Result{
			State: st,
			Replies: []Reply{{
				Text:    "No problem. Type the bank name again.",
				Buttons: cancelRow(),
			}},
			Cleanup: cleanup,
		}
	default:
		return reprompt(st, "Use the buttons to confirm the bank, or cancel.")
	}
}

func suggestionCleanup(sub *SubState, in Input) []int {
	var ids []int
	if in.MessageID != 0 {
		ids = append(ids, in.MessageID)
	}
	if sub.PromptMessageID != 0 && sub.PromptMessageID != in.MessageID {
		ids = append(ids, sub.PromptMessageID)
	}
	return ids
}

// subAccount validates the account number and immediately verifies it with
// the resolver. A verification failure keeps the step (and the chosen
// bank) so the user can retype the number.
func (w *Wizard) subAccount(ctx context.Context, userID int64, st State, in Input) (Result, error) {
	if in.IsCallback() {
		return reprompt(st, "Type the 10-digit account number."), nil
	}
	number := strings.TrimSpace(in.Text)
	if !isAccountNumber(number) {
		return reprompt(st, "An account number is exactly 10 digits. Try again."), nil
	}

	vctx, cancel := context.WithTimeout(ctx, w.verifyTO)
	defer cancel()
	holder, err := w.verifier.ResolveAccount(vctx, number, st.Sub.BankCode)
	if err != nil {
		logger.SVCVerify.Warn("account verification failed",
			slog.String("event", "verify.resolve"),
			slog.Int64("user_id", userID),
			slog.String("bank_code", st.Sub.BankCode),
			slog.String("err", err.Error()),
		)
		return reprompt(st, fmt.Sprintf(
			"I couldn't verify that account with %s. Check the number and try again.", st.Sub.BankName)), nil
	}

	st.Sub.AccountNumber = number
	st.Sub.AccountName = holder
	st.Sub.Step = SubStepConfirm
	return Result{
		State: st,
		Replies: []Reply{{
			Text: fmt.Sprintf("Account found:\n\n%s\n%s\n%s\n\nIs this correct?",
				st.Sub.BankName, number, holder),
			Buttons: [][]Button{
				{
					{Label: "✅ Yes", Key: CallbackBankConfirm, Payload: "yes"},
					{Label: "🔄 No, start over", Key: CallbackBankConfirm, Payload: "no"},
				},
				{{Label: "❌ Cancel", Key: CallbackCancel}},
			},
		}},
	}, nil
}

func isAccountNumber(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// subConfirm closes the sub-flow. Yes returns the bank details to the
// parent and persists them as the user's saved account; no restarts the
// sub-flow from the name step.
func (w *Wizard) subConfirm(ctx context.Context, userID int64, st State, in Input) (Result, error) {
	if in.Callback != CallbackBankConfirm {
		return reprompt(st, "Use the buttons to confirm the account, or cancel."), nil
	}
	switch in.Payload {
	case "yes":
		details := domain.BankDetails{
			BankName:      st.Sub.BankName,
			BankCode:      st.Sub.BankCode,
			AccountNumber: st.Sub.AccountNumber,
			AccountName:   st.Sub.AccountName,
		}
		if err := w.store.SaveBankAccount(ctx, domain.BankAccount{
			UserID:        userID,
			BankName:      details.BankName,
			BankCode:      details.BankCode,
			AccountNumber: details.AccountNumber,
			AccountName:   details.AccountName,
		}); err != nil {
			// Saving the reusable account is best effort; the sell
			// itself proceeds with the confirmed details.
			logger.SVCBanks.Warn("saving bank account failed",
				slog.String("event", "banks.save"),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		st.Sub = nil
		st.Draft.Bank = details
		return w.commit(ctx, userID, st)
	case "no":
		st.Sub = &SubState{Step: SubStepName}
		return Result{
			State: st,
			Replies: []Reply{{
				Text:    "Let's start over. Type the bank name.",
				Buttons: cancelRow(),
			}},
		}, nil
	default:
		return reprompt(st, "Use the buttons to confirm the account, or cancel."), nil
	}
}
