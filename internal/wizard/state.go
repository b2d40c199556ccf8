package wizard

import "github.com/rampforge/sellbot/internal/domain"

// Step identifies the position of a conversation in the sell wizard.
type Step string

const (
	StepAmount  Step = "amount"
	StepNetwork Step = "network"
	StepBank    Step = "bank"
	StepSummary Step = "summary"
)

// SubStep identifies the position inside the nested bank-linking flow.
type SubStep string

const (
	SubStepName    SubStep = "bank_name"
	SubStepSuggest SubStep = "bank_suggest"
	SubStepAccount SubStep = "bank_account"
	SubStepConfirm SubStep = "bank_confirm"
)

// Draft accumulates the sell order while the wizard runs. The amount is
// kept as the entered decimal string until the network step, where the
// asset decimals become known and it is scaled to smallest units.
type Draft struct {
	AmountText  string             `json:"amountText"`
	AmountUnits int64              `json:"amountUnits"`
	Network     string             `json:"network"`
	ChainID     int64              `json:"chainId"`
	Asset       string             `json:"asset"`
	Bank        domain.BankDetails `json:"bank"`
}

// SubState is the bank-linking sub-flow's own state. It exists only while
// the sub-flow runs and always resolves to a completed BankDetails or an
// abort before control returns to the parent.
type SubState struct {
	Step          SubStep `json:"step"`
	BankName      string  `json:"bankName"`
	BankCode      string  `json:"bankCode"`
	CandidateName string  `json:"candidateName"`
	CandidateCode string  `json:"candidateCode"`
	AccountNumber string  `json:"accountNumber"`
	AccountName   string  `json:"accountName"`
	// PromptMessageID records the message that triggered the suggestion.
	// It is deleted together with the suggestion prompt once answered.
	PromptMessageID int `json:"promptMessageId,omitempty"`
}

// State is the full serializable conversation state. Everything the wizard
// needs to resume lives here; nothing hides in handler closures.
type State struct {
	Step  Step      `json:"step"`
	Draft Draft     `json:"draft"`
	Sub   *SubState `json:"sub,omitempty"`
}

// InSubFlow reports whether the bank-linking sub-flow is active.
func (s State) InSubFlow() bool { return s.Sub != nil }

// Button is a UI-agnostic inline button. The Telegram layer turns these
// into callback buttons keyed by Key with Payload as data.
type Button struct {
	Label   string
	Key     string
	Payload string
}

// Reply is one outgoing message produced by a transition.
type Reply struct {
	Text    string
	Buttons [][]Button
}

// Input is one incoming user interaction, either plain text or a pressed
// callback button.
type Input struct {
	Text      string
	Callback  string
	Payload   string
	MessageID int
}

// IsCallback reports whether the input is a button press.
func (in Input) IsCallback() bool { return in.Callback != "" }

// Result is the outcome of feeding one Input to the wizard.
type Result struct {
	State   State
	Replies []Reply
	// Done is set when the wizard committed a session and finished.
	Done bool
	// Aborted is set when the user cancelled; no session was created.
	Aborted bool
	// Session is the committed sell session when Done.
	Session *domain.SellSession
	// HandoffURL is the wallet-connect link presented when Done.
	HandoffURL string
	// Cleanup lists message ids whose prompts are stale and should be
	// deleted from the chat, such as an answered bank suggestion.
	Cleanup []int
}

// Callback keys registered by the Telegram layer.
const (
	CallbackNetwork      = "network"
	CallbackBankUseSaved = "bank_use_saved"
	CallbackBankAddNew   = "bank_add_new"
	CallbackBankConfirm  = "bank_confirm"
	CallbackCancel       = "sell_cancel"
)
