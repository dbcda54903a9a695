package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"

	SourcePayout     = "payout"
	SourceTransfer   = "transfer"
	SourceAdjustment = "adjustment"
)

// Account is a driver's wallet. Available never drops below zero after a
// committed mutation.
type Account struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"driver_id"`
	Address   string          `json:"wallet_address"`
	Currency  string          `json:"currency"`
	Available decimal.Decimal `json:"available_balance"`
	Pending   decimal.Decimal `json:"pending_balance"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is one immutable line of an account's log. Amount is signed:
// negative for debits, positive for credits.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	OwnerID     string          `json:"driver_id"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   string          `json:"type"`
	Source      string          `json:"source"`
	Description string          `json:"description"`
	TransferID  string          `json:"transfer_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Transfer records one value movement between two accounts.
type Transfer struct {
	ID                string          `json:"id"`
	SenderAccountID   string          `json:"sender_account_id"`
	ReceiverAccountID string          `json:"receiver_account_id"`
	SenderID          string          `json:"sender_id"`
	ReceiverID        string          `json:"receiver_id"`
	Amount            decimal.Decimal `json:"amount"`
	Note              string          `json:"note,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewDebit builds the log line for money leaving acc.
func NewDebit(acc Account, amount decimal.Decimal, source, description string) Transaction {
	return Transaction{
		AccountID:   acc.ID,
		OwnerID:     acc.OwnerID,
		Amount:      amount.Abs().Neg(),
		Direction:   DirectionDebit,
		Source:      source,
		Description: description,
	}
}

// NewCredit builds the log line for money entering acc.
func NewCredit(acc Account, amount decimal.Decimal, source, description string) Transaction {
	return Transaction{
		AccountID:   acc.ID,
		OwnerID:     acc.OwnerID,
		Amount:      amount.Abs(),
		Direction:   DirectionCredit,
		Source:      source,
		Description: description,
	}
}
