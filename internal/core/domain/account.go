package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountExists is returned by storage when the user already holds an account.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNumberTaken is returned by storage when a generated account number collides.
	ErrAccountNumberTaken = errors.New("account number already in use")
)

// Account is a user's single bank account. Both balances always move together.
type Account struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	AccountNumber    string          `json:"account_number"`
	RoutingNumber    string          `json:"routing_number"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CanDebit reports whether the current balance covers amount.
func (a Account) CanDebit(amount decimal.Decimal) bool {
	return a.CurrentBalance.GreaterThanOrEqual(amount)
}

// Settle computes the account state that results from applying txn and finalizes txn.
// The receiver is a snapshot; the caller persists the returned value and txn together.
// An insufficient debit is not an error: txn is marked failed and the balances are unchanged.
func (a Account) Settle(txn *Transaction, now time.Time) (Account, error) {
	if !txn.TransactionType.IsValid() {
		return a, fmt.Errorf("unknown transaction type %q", txn.TransactionType)
	}
	if !txn.Amount.IsPositive() {
		return a, fmt.Errorf("transaction amount must be positive, got %s", txn.Amount)
	}
	if txn.IsTerminal() {
		return a, ErrTransactionFinalized
	}

	next := a
	txn.AccountID = a.ID

	if txn.TransactionType.IsDebit() {
		if !a.CanDebit(txn.Amount) {
			return a, txn.Fail()
		}
		next.CurrentBalance = a.CurrentBalance.Sub(txn.Amount)
		next.AvailableBalance = a.AvailableBalance.Sub(txn.Amount)
	} else {
		next.CurrentBalance = a.CurrentBalance.Add(txn.Amount)
		next.AvailableBalance = a.AvailableBalance.Add(txn.Amount)
	}

	if err := txn.Complete(now); err != nil {
		return a, err
	}
	next.UpdatedAt = now
	return next, nil
}

// NewAccount builds an empty account for userID.
func NewAccount(userID uuid.UUID, accountNumber, routingNumber string, now time.Time) *Account {
	return &Account{
		ID:               uuid.New(),
		UserID:           userID,
		AccountNumber:    accountNumber,
		RoutingNumber:    routingNumber,
		CurrentBalance:   decimal.Zero,
		AvailableBalance: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
