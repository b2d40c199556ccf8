package domain

import (
	"time"
)

// Status is the lifecycle stage of a sell session.
type Status string

const (
	StatusPending           Status = "pending"
	StatusWalletConnected   Status = "wallet_connected"
	StatusApprovalConfirmed Status = "approval_confirmed"
	StatusDepositConfirmed  Status = "deposit_confirmed"
	StatusCompleted         Status = "completed"
	StatusErrored           Status = "errored"
)

// forward holds the single legal next stage for each non-terminal status.
var forward = map[Status]Status{
	StatusPending:           StatusWalletConnected,
	StatusWalletConnected:   StatusApprovalConfirmed,
	StatusApprovalConfirmed: StatusDepositConfirmed,
	StatusDepositConfirmed:  StatusCompleted,
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusErrored
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusWalletConnected, StatusApprovalConfirmed,
		StatusDepositConfirmed, StatusCompleted, StatusErrored:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal status edge.
// The lifecycle is strictly linear; the only branch is that any
// non-terminal status may move to errored. Stages cannot be skipped
// and terminal statuses have no outgoing edges.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusErrored {
		return from.Valid()
	}
	return forward[from] == to
}

// BankDetails is the payout destination captured during the conversation.
type BankDetails struct {
	BankName      string `db:"bank_name" json:"bankName"`
	BankCode      string `db:"bank_code" json:"bankCode"`
	AccountNumber string `db:"account_number" json:"accountNumber"`
	AccountName   string `db:"account_name" json:"accountName"`
}

// SellSession is a single crypto-to-fiat sell order. Amount is stored in
// the asset's smallest units (6 decimals for USDC).
type SellSession struct {
	ID            string      `db:"id" json:"id"`
	UserID        int64       `db:"user_id" json:"userId"`
	Amount        int64       `db:"amount" json:"amount"`
	Asset         string      `db:"asset" json:"asset"`
	ChainID       int64       `db:"chain_id" json:"chainId"`
	Network       string      `db:"network" json:"network"`
	Bank          BankDetails `db:"bank" json:"bank"`
	Status        Status      `db:"status" json:"status"`
	WalletAddress string      `db:"wallet_address" json:"walletAddress,omitempty"`
	TxHash        string      `db:"tx_hash" json:"txHash,omitempty"`
	ErrorMessage  string      `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updatedAt"`
}

// Active reports whether the session still participates in reconciliation.
func (s *SellSession) Active() bool {
	return !s.Status.IsTerminal()
}

// BankAccount is a user's durable last-used payout account, offered for
// reuse on subsequent sells.
type BankAccount struct {
	UserID        int64     `db:"user_id" json:"userId"`
	BankName      string    `db:"bank_name" json:"bankName"`
	BankCode      string    `db:"bank_code" json:"bankCode"`
	AccountNumber string    `db:"account_number" json:"accountNumber"`
	AccountName   string    `db:"account_name" json:"accountName"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Details converts the stored account into conversation bank details.
func (a BankAccount) Details() BankDetails {
	return BankDetails{
		BankName:      a.BankName,
		BankCode:      a.BankCode,
		AccountNumber: a.AccountNumber,
		AccountName:   a.AccountName,
	}
}
