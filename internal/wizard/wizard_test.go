package wizard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rampforge/sellbot/internal/domain"
	"github.com/rampforge/sellbot/internal/quote"
	"github.com/rampforge/sellbot/internal/store"
)

type fakeVerifier struct {
	name string
	err  error
	// calls records (accountNumber, bankCode) pairs.
	calls [][2]string
}

func (f *fakeVerifier) ResolveAccount(_ context.Context, accountNumber, bankCode string) (string, error) {
	f.calls = append(f.calls, [2]string{accountNumber, bankCode})
	if f.err != nil {
		return "", f.err
	}
	return f.name, nil
}

type fakeQuoter struct {
	est quote.Estimate
	err error
}

func (f *fakeQuoter) Estimate(_ context.Context, _ string, _ int64) (quote.Estimate, error) {
	return f.est, f.err
}

func newWizard(t *testing.T, m *store.Memory, v *fakeVerifier, q quote.Quoter) *Wizard {
	t.Helper()
	return New(Options{
		Store:       m,
		Verifier:    v,
		Quoter:      q,
		HandoffBase: "https://sell.example.com",
	})
}

// step feeds one input and fails the test on transition errors.
func step(t *testing.T, w *Wizard, userID int64, st State, in Input) Result {
	t.Helper()
	res, err := w.Handle(context.Background(), userID, st, in)
	if err != nil {
		t.Fatalf("Handle(%+v): %v", in, err)
	}
	return res
}

func TestHappyPathNewBank(t *testing.T) {
	m := store.NewMemory()
	v := &fakeVerifier{name: "JANE DOE"}
	w := newWizard(t, m, v, nil)

	res := w.Start(context.Background(), 42)
	if res.State.Step != StepAmount {
		t.Fatalf("expected amount step, got %s", res.State.Step)
	}

	res = step(t, w, 42, res.State, Input{Text: "10"})
	if res.State.Step != StepNetwork {
		t.Fatalf("expected network step, got %s", res.State.Step)
	}
	if res.State.Draft.AmountText != "10" {
		t.Errorf("draft amount: %q", res.State.Draft.AmountText)
	}

	res = step(t, w, 42, res.State, Input{Callback: CallbackNetwork, Payload: "BASE"})
	if res.State.Step != StepBank || !res.State.InSubFlow() {
		t.Fatalf("expected bank sub-flow (no saved account), got step=%s sub=%v", res.State.Step, res.State.Sub)
	}
	if res.State.Draft.AmountUnits != 10_000_000 {
		t.Errorf("amount not scaled to smallest units: %d", res.State.Draft.AmountUnits)
	}
	if res.State.Draft.ChainID != 8453 {
		t.Errorf("chain id: %d", res.State.Draft.ChainID)
	}

	res = step(t, w, 42, res.State, Input{Text: "Guaranty Trust Bank"})
	if res.State.Sub.Step != SubStepAccount {
		t.Fatalf("exact bank name must skip the suggestion step, got %s", res.State.Sub.Step)
	}
	if res.State.Sub.BankCode != "058" {
		t.Errorf("bank code: %q", res.State.Sub.BankCode)
	}

	res = step(t, w, 42, res.State, Input{Text: "0123456789"})
	if res.State.Sub.Step != SubStepConfirm {
		t.Fatalf("expected confirm step, got %s", res.State.Sub.Step)
	}
	if res.State.Sub.AccountName != "JANE DOE" {
		t.Errorf("holder name: %q", res.State.Sub.AccountName)
	}
	if len(v.calls) != 1 || v.calls[0] != [2]string{"0123456789", "058"} {
		t.Errorf("verifier calls: %v", v.calls)
	}

	res = step(t, w, 42, res.State, Input{Callback: CallbackBankConfirm, Payload: "yes"})
	if !res.Done {
		t.Fatal("expected the wizard to finish")
	}
	s := res.Session
	if s == nil {
		t.Fatal("no session committed")
	}
	if s.Status != domain.StatusPending {
		t.Errorf("status: %s", s.Status)
	}
	if s.Amount != 10_000_000 || s.Network != "BASE" || s.ChainID != 8453 {
		t.Errorf("unexpected session: %+v", s)
	}
	if s.Bank.AccountName != "JANE DOE" || s.Bank.BankCode != "058" {
		t.Errorf("bank details: %+v", s.Bank)
	}

	wantURL := "https://sell.example.com/connect?userId=42&session=" + s.ID
	if res.HandoffURL != wantURL {
		t.Errorf("handoff url %q, want %q", res.HandoffURL, wantURL)
	}
	if len(res.Replies) == 0 || !strings.Contains(res.Replies[0].Text, res.HandoffURL) {
		t.Error("summary reply must include the handoff url")
	}

	// Session persisted and bank saved for reuse.
	if _, err := m.GetSession(context.Background(), s.ID); err != nil {
		t.Errorf("session not persisted: %v", err)
	}
	acc, err := m.GetBankAccount(context.Background(), 42)
	if err != nil {
		t.Fatalf("bank account not saved: %v", err)
	}
	if acc.AccountNumber != "0123456789" {
		t.Errorf("saved account: %+v", acc)
	}
}

func TestInvalidAmountReprompts(t *testing.T) {
	w := newWizard(t, store.NewMemory(), &fakeVerifier{}, nil)
	st := w.Start(context.Background(), 42).State

	for _, text := range []string{"ten", "-5", "0", ""} {
		res := step(t, w, 42, st, Input{Text: text})
		if res.State.Step != StepAmount {
			t.Errorf("input %q advanced the wizard to %s", text, res.State.Step)
		}
		if res.Done || res.Aborted {
			t.Errorf("input %q terminated the wizard", text)
		}
	}
}

func TestNetworkStepRejectsText(t *testing.T) {
	w := newWizard(t, store.NewMemory(), &fakeVerifier{}, nil)
	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "10"}).State

	res := step(t, w, 42, st, Input{Text: "BASE"})
	if res.State.Step != StepNetwork {
		t.Errorf("plain text must not select a network, got step %s", res.State.Step)
	}

	res = step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "SOLANA"})
	if res.State.Step != StepNetwork {
		t.Errorf("unsupported network advanced the wizard")
	}
}

func TestBankSuggestionFlow(t *testing.T) {
	m := store.NewMemory()
	v := &fakeVerifier{name: "JANE DOE"}
	w := newWizard(t, m, v, nil)

	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "10"}).State
	st = step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "POLYGON"}).State

	// Misspelled name within threshold: suggestion offered.
	res := step(t, w, 42, st, Input{Text: "guarranty trust bank", MessageID: 77})
	if res.State.Sub.Step != SubStepSuggest {
		t.Fatalf("expected suggestion step, got %s", res.State.Sub.Step)
	}
	if res.State.Sub.CandidateCode != "058" {
		t.Errorf("candidate: %+v", res.State.Sub)
	}
	if res.State.Sub.PromptMessageID != 77 {
		t.Errorf("prompt message id not kept: %d", res.State.Sub.PromptMessageID)
	}

	// Decline: back to the name step, both the suggestion prompt and the
	// misspelled message queued for deletion.
	declined := step(t, w, 42, res.State, Input{Callback: CallbackBankConfirm, Payload: "no", MessageID: 78})
	if declined.State.Sub.Step != SubStepName {
		t.Errorf("decline must restart at name, got %s", declined.State.Sub.Step)
	}
	if !containsInt(declined.Cleanup, 78) || !containsInt(declined.Cleanup, 77) {
		t.Errorf("decline cleanup = %v, want the prompt and its trigger", declined.Cleanup)
	}

	// Accept: on to the account step with the candidate locked in.
	accepted := step(t, w, 42, res.State, Input{Callback: CallbackBankConfirm, Payload: "yes", MessageID: 78})
	if accepted.State.Sub.Step != SubStepAccount {
		t.Fatalf("accept must advance to account, got %s", accepted.State.Sub.Step)
	}
	if accepted.State.Sub.BankCode != "058" || accepted.State.Sub.BankName != "Guaranty Trust Bank" {
		t.Errorf("bank not locked in: %+v", accepted.State.Sub)
	}
	if !containsInt(accepted.Cleanup, 78) || !containsInt(accepted.Cleanup, 77) {
		t.Errorf("accept cleanup = %v, want the prompt and its trigger", accepted.Cleanup)
	}
	if accepted.State.Sub.PromptMessageID != 0 {
		t.Errorf("prompt id must not outlive the suggestion: %d", accepted.State.Sub.PromptMessageID)
	}
}

func containsInt(xs []int, want int) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

func TestBankRejectedBeyondThreshold(t *testing.T) {
	w := newWizard(t, store.NewMemory(), &fakeVerifier{}, nil)
	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "10"}).State
	st = step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "BASE"}).State

	res := step(t, w, 42, st, Input{Text: "qqqqqqqqqqqqqqqqqqqq"})
	if res.State.Sub.Step != SubStepName {
		t.Errorf("garbage bank name advanced the sub-flow to %s", res.State.Sub.Step)
	}
	if len(res.Replies) == 0 || !strings.Contains(res.Replies[0].Text, "Zenith Bank") {
		t.Error("rejection must list the supported banks")
	}
}

func TestAccountNumberValidation(t *testing.T) {
	v := &fakeVerifier{name: "JANE DOE"}
	w := newWizard(t, store.NewMemory(), v, nil)
	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "10"}).State
	st = step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "BASE"}).State
	st = step(t, w, 42, st, Input{Text: "Zenith Bank"}).State

	for _, bad := range []string{"12345", "12345678901", "01234abcde", "0123 56789"} {
		res := step(t, w, 42, st, Input{Text: bad})
		if res.State.Sub.Step != SubStepAccount {
			t.Errorf("account %q advanced the sub-flow", bad)
		}
	}
	if len(v.calls) != 0 {
		t.Errorf("invalid numbers must not hit the verifier: %v", v.calls)
	}
}

func TestVerificationFailureKeepsBank(t *testing.T) {
	v := &fakeVerifier{err: errors.New("resolver down")}
	w := newWizard(t, store.NewMemory(), v, nil)
	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "10"}).State
	st = step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "BASE"}).State
	st = step(t, w, 42, st, Input{Text: "Zenith Bank"}).State

	res := step(t, w, 42, st, Input{Text: "0123456789"})
	if res.State.Sub.Step != SubStepAccount {
		t.Errorf("verification failure must re-prompt the account step, got %s", res.State.Sub.Step)
	}
	if res.State.Sub.BankName != "Zenith Bank" || res.State.Sub.BankCode != "057" {
		t.Errorf("bank must be preserved across the failure: %+v", res.State.Sub)
	}

	// Resolver recovers, the retry goes through.
	v.err = nil
	res = step(t, w, 42, res.State, Input{Text: "0123456789"})
	if res.State.Sub.Step != SubStepConfirm {
		t.Errorf("expected confirm step after recovery, got %s", res.State.Sub.Step)
	}
}

func TestConfirmNoRestartsSubFlow(t *testing.T) {
	v := &fakeVerifier{name: "JANE DOE"}
	w := newWizard(t, store.NewMemory(), v, nil)
	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "10"}).State
	st = step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "BASE"}).State
	st = step(t, w, 42, st, Input{Text: "Zenith Bank"}).State
	st = step(t, w, 42, st, Input{Text: "0123456789"}).State

	res := step(t, w, 42, st, Input{Callback: CallbackBankConfirm, Payload: "no"})
	if res.State.Sub.Step != SubStepName {
		t.Errorf("no must restart the sub-flow, got %s", res.State.Sub.Step)
	}
	if res.Done || res.Aborted {
		t.Error("no must not terminate the wizard")
	}
}

func TestCancellation(t *testing.T) {
	m := store.NewMemory()
	v := &fakeVerifier{name: "JANE DOE"}
	w := newWizard(t, m, v, nil)

	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "10"}).State
	st = step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "BASE"}).State
	st = step(t, w, 42, st, Input{Text: "Zenith Bank"}).State

	// Cancel mid sub-flow, at the account step.
	for _, in := range []Input{
		{Text: "cancel"},
		{Text: "EXIT"},
		{Callback: CallbackCancel},
	} {
		res := step(t, w, 42, st, in)
		if !res.Aborted {
			t.Errorf("input %+v must abort the wizard", in)
		}
		if res.Session != nil {
			t.Error("cancellation must not create a session")
		}
	}
	if _, err := m.LatestSessionByUser(context.Background(), 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("no session should exist after cancel, got %v", err)
	}
}

func TestSavedBankShortcut(t *testing.T) {
	m := store.NewMemory()
	if err := m.SaveBankAccount(context.Background(), domain.BankAccount{
		UserID:        42,
		BankName:      "Access Bank",
		BankCode:      "044",
		AccountNumber: "1112223334",
		AccountName:   "JANE DOE",
	}); err != nil {
		t.Fatal(err)
	}
	w := newWizard(t, m, &fakeVerifier{}, nil)

	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "5"}).State
	res := step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "ARBITRUM"})
	if res.State.InSubFlow() {
		t.Fatal("saved account must be offered instead of the sub-flow")
	}
	if res.State.Step != StepBank {
		t.Fatalf("expected bank step, got %s", res.State.Step)
	}

	res = step(t, w, 42, res.State, Input{Callback: CallbackBankUseSaved})
	if !res.Done || res.Session == nil {
		t.Fatal("using the saved account must commit the session")
	}
	if res.Session.Bank.BankCode != "044" || res.Session.Amount != 5_000_000 {
		t.Errorf("unexpected session: %+v", res.Session)
	}
}

func TestSavedBankAddNewEntersSubFlow(t *testing.T) {
	m := store.NewMemory()
	if err := m.SaveBankAccount(context.Background(), domain.BankAccount{
		UserID: 42, BankName: "Access Bank", BankCode: "044",
		AccountNumber: "1112223334", AccountName: "JANE DOE",
	}); err != nil {
		t.Fatal(err)
	}
	w := newWizard(t, m, &fakeVerifier{name: "JOHN DOE"}, nil)

	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "5"}).State
	st = step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "BNB"}).State

	res := step(t, w, 42, st, Input{Callback: CallbackBankAddNew})
	if !res.State.InSubFlow() || res.State.Sub.Step != SubStepName {
		t.Errorf("add-new must enter the sub-flow, got %+v", res.State.Sub)
	}
}

func TestQuoteShownInSummary(t *testing.T) {
	m := store.NewMemory()
	q := &fakeQuoter{est: quote.Estimate{Fiat: "16500.00", Currency: "NGN"}}
	w := newWizard(t, m, &fakeVerifier{name: "JANE DOE"}, q)

	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "10"}).State
	st = step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "BASE"}).State
	st = step(t, w, 42, st, Input{Text: "Zenith Bank"}).State
	st = step(t, w, 42, st, Input{Text: "0123456789"}).State

	res := step(t, w, 42, st, Input{Callback: CallbackBankConfirm, Payload: "yes"})
	if !res.Done {
		t.Fatal("expected the wizard to finish")
	}
	if !strings.Contains(res.Replies[0].Text, "16500.00 NGN") {
		t.Errorf("summary must show the estimate:\n%s", res.Replies[0].Text)
	}
}

func TestQuoteFailureDegrades(t *testing.T) {
	m := store.NewMemory()
	q := &fakeQuoter{err: errors.New("rates feed down")}
	w := newWizard(t, m, &fakeVerifier{name: "JANE DOE"}, q)

	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "10"}).State
	st = step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "BASE"}).State
	st = step(t, w, 42, st, Input{Text: "Zenith Bank"}).State
	st = step(t, w, 42, st, Input{Text: "0123456789"}).State

	res := step(t, w, 42, st, Input{Callback: CallbackBankConfirm, Payload: "yes"})
	if !res.Done || res.Session == nil {
		t.Fatal("quote failures must not block the commit")
	}
	if strings.Contains(res.Replies[0].Text, "Estimated payout") {
		t.Error("failed estimate must be omitted from the summary")
	}
}

func TestTooManyDecimalsForAsset(t *testing.T) {
	w := newWizard(t, store.NewMemory(), &fakeVerifier{}, nil)
	st := w.Start(context.Background(), 42).State
	st = step(t, w, 42, st, Input{Text: "1.23456789"}).State

	res := step(t, w, 42, st, Input{Callback: CallbackNetwork, Payload: "BASE"})
	if res.State.Step != StepAmount {
		t.Errorf("over-precise amount must return to the amount step, got %s", res.State.Step)
	}
}
