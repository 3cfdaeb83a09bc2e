package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func accountWith(balance string) Account {
	b := dec(balance)
	return Account{ID: uuid.New(), UserID: uuid.New(), CurrentBalance: b, AvailableBalance: b}
}

func TestTransactionType_IsDebit(t *testing.T) {
	tests := []struct {
		txType TransactionType
		valid  bool
		debit  bool
	}{
		{TransactionTypeDeposit, true, false},
		{TransactionTypeWithdrawal, true, true},
		{TransactionTypeTransfer, true, true},
		{TransactionTypePayment, true, true},
		{TransactionTypeCardPurchase, true, true},
		{TransactionType("refund"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.txType.IsValid())
			assert.Equal(t, tt.debit, tt.txType.IsDebit())
		})
	}
}

func TestTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		status TransactionStatus
		want   bool
	}{
		{TransactionStatusPending, false},
		{TransactionStatusCompleted, true},
		{TransactionStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			tx := &Transaction{Status: tt.status}
			assert.Equal(t, tt.want, tx.IsTerminal())
		})
	}
}

func TestTransaction_NoTransitionOutOfTerminal(t *testing.T) {
	now := time.Now()
	tx := NewTransaction(uuid.New(), TransactionTypeDeposit, dec("10"), "USD", "", nil, now)
	assert.Equal(t, TransactionStatusPending, tx.Status)
	assert.NotNil(t, tx.Metadata)

	require.NoError(t, tx.Complete(now))
	assert.ErrorIs(t, tx.Complete(now), ErrTransactionFinalized)
	assert.ErrorIs(t, tx.Fail(), ErrTransactionFinalized)
	assert.Equal(t, TransactionStatusCompleted, tx.Status)

	failed := NewTransaction(uuid.New(), TransactionTypePayment, dec("10"), "USD", "", nil, now)
	require.NoError(t, failed.Fail())
	assert.Nil(t, failed.CompletedAt)
	assert.ErrorIs(t, failed.Complete(now), ErrTransactionFinalized)
}

func TestAccount_Settle_DebitSufficient(t *testing.T) {
	for _, txType := range []TransactionType{
		TransactionTypeWithdrawal, TransactionTypeTransfer, TransactionTypePayment, TransactionTypeCardPurchase,
	} {
		t.Run(string(txType), func(t *testing.T) {
			acc := accountWith("100.00")
			now := time.Now()
			tx := NewTransaction(acc.UserID, txType, dec("40.00"), "USD", "", nil, now)

			next, err := acc.Settle(tx, now)
			require.NoError(t, err)
			assert.Equal(t, "60.00", next.CurrentBalance.StringFixed(2))
			assert.Equal(t, "60.00", next.AvailableBalance.StringFixed(2))
			assert.Equal(t, TransactionStatusCompleted, tx.Status)
			require.NotNil(t, tx.CompletedAt)
			assert.Equal(t, acc.ID, tx.AccountID)
			// snapshot untouched
			assert.Equal(t, "100.00", acc.CurrentBalance.StringFixed(2))
		})
	}
}

func TestAccount_Settle_DebitExactBalance(t *testing.T) {
	acc := accountWith("40.00")
	tx := NewTransaction(acc.UserID, TransactionTypeWithdrawal, dec("40.00"), "USD", "", nil, time.Now())

	next, err := acc.Settle(tx, time.Now())
	require.NoError(t, err)
	assert.True(t, next.CurrentBalance.IsZero())
	assert.Equal(t, TransactionStatusCompleted, tx.Status)
}

func TestAccount_Settle_DebitInsufficient(t *testing.T) {
	acc := accountWith("100.00")
	tx := NewTransaction(acc.UserID, TransactionTypeWithdrawal, dec("150.00"), "USD", "", nil, time.Now())

	next, err := acc.Settle(tx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "100.00", next.CurrentBalance.StringFixed(2))
	assert.Equal(t, "100.00", next.AvailableBalance.StringFixed(2))
	assert.Equal(t, TransactionStatusFailed, tx.Status)
	assert.Nil(t, tx.CompletedAt)
}

func TestAccount_Settle_Deposit(t *testing.T) {
	acc := accountWith("0.00")
	tx := NewTransaction(acc.UserID, TransactionTypeDeposit, dec("25.50"), "USD", "", nil, time.Now())

	next, err := acc.Settle(tx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "25.50", next.CurrentBalance.StringFixed(2))
	assert.Equal(t, "25.50", next.AvailableBalance.StringFixed(2))
	assert.Equal(t, TransactionStatusCompleted, tx.Status)
}

func TestAccount_Settle_Rejects(t *testing.T) {
	acc := accountWith("10.00")

	unknown := NewTransaction(acc.UserID, TransactionType("refund"), dec("1"), "USD", "", nil, time.Now())
	_, err := acc.Settle(unknown, time.Now())
	assert.Error(t, err)

	zero := NewTransaction(acc.UserID, TransactionTypeDeposit, decimal.Zero, "USD", "", nil, time.Now())
	_, err = acc.Settle(zero, time.Now())
	assert.Error(t, err)

	done := NewTransaction(acc.UserID, TransactionTypeDeposit, dec("1"), "USD", "", nil, time.Now())
	require.NoError(t, done.Complete(time.Now()))
	_, err = acc.Settle(done, time.Now())
	assert.ErrorIs(t, err, ErrTransactionFinalized)
}

func TestTransaction_JSONKeepsDecimalPrecision(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tx := NewTransaction(uuid.New(), TransactionTypePayment, dec("0.10"), "EUR", "coffee", map[string]any{"k": "v"}, now)
	require.NoError(t, tx.Complete(now))

	raw, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":"0.1"`)

	var back Transaction
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, tx.Amount.Equal(back.Amount))
	assert.Equal(t, tx.Status, back.Status)
	assert.Equal(t, "v", back.Metadata["k"])
}

func TestTransactionActivity(t *testing.T) {
	tx := NewTransaction(uuid.New(), TransactionTypeWithdrawal, dec("150"), "USD", "", nil, time.Now())
	require.NoError(t, tx.Fail())

	ev := TransactionActivity(tx)
	assert.Equal(t, ActivityTransaction, ev.ActionType)
	assert.Equal(t, tx.UserID, ev.UserID)
	assert.Equal(t, map[string]string{"type": "withdrawal", "amount": "150.00", "status": "failed"}, ev.Details)
}

func TestNewCard_InitialState(t *testing.T) {
	now := time.Date(2026, 1, 10, 15, 30, 0, 0, time.UTC)
	userID := uuid.New()

	virtual := NewCard(userID, CardTypeVirtual, "XXXX-XXXX-XXXX-1111", now)
	assert.Equal(t, CardStatusPaid, virtual.PurchaseStatus)
	assert.True(t, virtual.PurchaseAmount.IsZero())
	assert.Equal(t, now.Add(CardPaymentWindow), virtual.PaymentDeadline)
	assert.Equal(t, time.Date(2029, 1, 10, 0, 0, 0, 0, time.UTC), virtual.ExpiryDate)

	physical := NewCard(userID, CardTypePhysical, "XXXX-XXXX-XXXX-2222", now)
	assert.Equal(t, CardStatusPendingPayment, physical.PurchaseStatus)
	assert.Equal(t, "50.00", physical.PurchaseAmount.StringFixed(2))
	assert.Nil(t, physical.IssuedAt)
}

func TestCard_IsOverdue(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		status   CardStatus
		deadline time.Time
		want     bool
	}{
		{"pending before deadline", CardStatusPendingPayment, now.Add(time.Hour), false},
		{"pending after deadline", CardStatusPendingPayment, now.Add(-time.Hour), true},
		{"paid after deadline", CardStatusPaid, now.Add(-time.Hour), false},
		{"cancelled after deadline", CardStatusCancelled, now.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Card{PurchaseStatus: tt.status, PaymentDeadline: tt.deadline}
			assert.Equal(t, tt.want, c.IsOverdue(now))
		})
	}
}

func TestCard_MarkPaid(t *testing.T) {
	now := time.Now()
	c := &Card{PurchaseStatus: CardStatusPendingPayment, PaymentDeadline: now.Add(-time.Hour)}
	require.True(t, c.IsOverdue(now))

	require.NoError(t, c.MarkPaid())
	assert.Equal(t, CardStatusPaid, c.PurchaseStatus)
	assert.False(t, c.IsOverdue(now), "paid card is never overdue")

	assert.ErrorIs(t, c.MarkPaid(), ErrCardAlreadyPaid)
	assert.Equal(t, CardStatusPaid, c.PurchaseStatus)

	for _, s := range []CardStatus{CardStatusIssued, CardStatusActive, CardStatusExpired, CardStatusCancelled} {
		other := &Card{PurchaseStatus: s}
		assert.ErrorIs(t, other.MarkPaid(), ErrCardAlreadyPaid)
		assert.Equal(t, s, other.PurchaseStatus)
	}
}

func TestCard_TimeUntilDeadline(t *testing.T) {
	now := time.Now()
	c := &Card{PurchaseStatus: CardStatusPendingPayment, PaymentDeadline: now.Add(2 * time.Hour)}
	d := c.TimeUntilDeadline(now)
	require.NotNil(t, d)
	assert.Equal(t, 2*time.Hour, *d)

	c.PurchaseStatus = CardStatusPaid
	assert.Nil(t, c.TimeUntilDeadline(now))
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "XXXX-XXXX-XXXX-4242", MaskCardNumber("4111123456784242"))
	assert.Equal(t, "XXXX-XXXX-XXXX-12", MaskCardNumber("12"))
}

func TestCalculateAmortization(t *testing.T) {
	tests := []struct {
		name            string
		principal       string
		months          int
		monthlyInterest string
		total           string
		monthly         string
	}{
		{"reference example", "1200.00", 12, "5.00", "1260.00", "105.00"},
		{"single month", "1000", 1, "4.17", "1004.17", "1004.17"},
		{"repeating division", "1000", 7, "4.17", "1029.17", "147.02"},
		{"long term", "25000", 60, "104.17", "31250.00", "520.83"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			am, err := CalculateAmortization(dec(tt.principal), tt.months, DefaultLoanInterestRate)
			require.NoError(t, err)
			assert.Equal(t, tt.monthlyInterest, am.MonthlyInterest.StringFixed(2))
			assert.Equal(t, tt.total, am.TotalRepayment.StringFixed(2))
			assert.Equal(t, tt.monthly, am.MonthlyPayment.StringFixed(2))
			assert.Equal(t, "5.00", am.InterestRate.StringFixed(2))
		})
	}
}

func TestCalculateAmortization_InvalidInput(t *testing.T) {
	_, err := CalculateAmortization(decimal.Zero, 12, DefaultLoanInterestRate)
	assert.ErrorIs(t, err, ErrInvalidPrincipal)

	_, err = CalculateAmortization(dec("-5"), 12, DefaultLoanInterestRate)
	assert.ErrorIs(t, err, ErrInvalidPrincipal)

	_, err = CalculateAmortization(dec("100"), 0, DefaultLoanInterestRate)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestNewLoan(t *testing.T) {
	loan, err := NewLoan(uuid.New(), dec("1200"), "USD", 12, time.Now())
	require.NoError(t, err)
	assert.Equal(t, LoanStatusPending, loan.Status)
	assert.Equal(t, "105.00", loan.MonthlyPayment.StringFixed(2))
	assert.Equal(t, "1260.00", loan.TotalRepayment.StringFixed(2))
	assert.Equal(t, "5.00", loan.InterestRate.StringFixed(2))
	assert.True(t, loan.RepaymentProgress.IsZero())
}

func TestValidCurrencyCode(t *testing.T) {
	assert.True(t, ValidCurrencyCode("USD"))
	assert.True(t, ValidCurrencyCode("EUR"))
	assert.False(t, ValidCurrencyCode("usd"))
	assert.False(t, ValidCurrencyCode("US"))
	assert.False(t, ValidCurrencyCode("USDT"))
	assert.False(t, ValidCurrencyCode("U1D"))
}

func TestNewAccount(t *testing.T) {
	now := time.Now()
	acc := NewAccount(uuid.New(), "PW12345678", "021000021", now)
	assert.True(t, acc.CurrentBalance.IsZero())
	assert.True(t, acc.AvailableBalance.IsZero())
	assert.Equal(t, now, acc.CreatedAt)
	assert.NotEqual(t, uuid.Nil, acc.ID)
}
