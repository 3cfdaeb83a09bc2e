package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit      TransactionType = "deposit"
	TransactionTypeWithdrawal   TransactionType = "withdrawal"
	TransactionTypeTransfer     TransactionType = "transfer"
	TransactionTypePayment      TransactionType = "payment"
	TransactionTypeCardPurchase TransactionType = "card_purchase"
)

// TransactionTypes lists every accepted kind in display order.
var TransactionTypes = []TransactionType{
	TransactionTypeDeposit,
	TransactionTypeWithdrawal,
	TransactionTypeTransfer,
	TransactionTypePayment,
	TransactionTypeCardPurchase,
}

// IsValid reports whether t is one of the known transaction kinds.
func (t TransactionType) IsValid() bool {
	for _, known := range TransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsDebit returns true for kinds that decrease the account balance.
func (t TransactionType) IsDebit() bool {
	switch t {
	case TransactionTypeWithdrawal, TransactionTypeTransfer, TransactionTypePayment, TransactionTypeCardPurchase:
		return true
	}
	return false
}

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// ErrTransactionFinalized is returned when a terminal transaction is asked to transition again.
var ErrTransactionFinalized = errors.New("transaction already finalized")

// Transaction is an append-only ledger entry. Once completed or failed it is never changed.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	AccountID       uuid.UUID         `json:"account_id"`
	TransactionType TransactionType   `json:"transaction_type"`
	Amount          decimal.Decimal   `json:"amount"`
	CurrencyCode    string            `json:"currency_code"`
	Status          TransactionStatus `json:"status"`
	Description     string            `json:"description"`
	Metadata        map[string]any    `json:"metadata"`
	Timestamp       time.Time         `json:"timestamp"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// NewTransaction builds a pending transaction for the given owner.
func NewTransaction(userID uuid.UUID, txType TransactionType, amount decimal.Decimal, currency, description string, metadata map[string]any, now time.Time) *Transaction {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Transaction{
		ID:              uuid.New(),
		UserID:          userID,
		TransactionType: txType,
		Amount:          amount,
		CurrencyCode:    currency,
		Status:          TransactionStatusPending,
		Description:     description,
		Metadata:        metadata,
		Timestamp:       now,
	}
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// Complete moves a pending transaction to completed and stamps completion time.
func (t *Transaction) Complete(now time.Time) error {
	if t.IsTerminal() {
		return ErrTransactionFinalized
	}
	t.Status = TransactionStatusCompleted
	t.CompletedAt = &now
	return nil
}

// Fail moves a pending transaction to failed. CompletedAt stays nil.
func (t *Transaction) Fail() error {
	if t.IsTerminal() {
		return ErrTransactionFinalized
	}
	t.Status = TransactionStatusFailed
	t.CompletedAt = nil
	return nil
}

// ValidCurrencyCode reports whether code is a 3-letter upper-case ISO-4217 style code.
func ValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
