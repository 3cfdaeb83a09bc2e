package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus represents the lifecycle state of a loan. Only pending is reached by
// the service today; the rest are kept for stored data.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusApproved LoanStatus = "approved"
	LoanStatusRejected LoanStatus = "rejected"
	LoanStatusActive   LoanStatus = "active"
	LoanStatusPaid     LoanStatus = "paid"
)

// DefaultLoanDurationMonths is used when an application omits the duration.
const DefaultLoanDurationMonths = 12

// DefaultLoanInterestRate is the fixed annual rate (5%).
var DefaultLoanInterestRate = decimal.RequireFromString("0.05")

var (
	ErrInvalidPrincipal = errors.New("principal must be greater than zero")
	ErrInvalidDuration  = errors.New("duration must be at least one month")
)

var monthsPerYear = decimal.NewFromInt(12)

// Amortization holds the derived repayment figures of a loan, rounded for storage.
type Amortization struct {
	MonthlyInterest decimal.Decimal
	TotalRepayment  decimal.Decimal
	MonthlyPayment  decimal.Decimal
	InterestRate    decimal.Decimal // Percent, e.g. 5.00
}

// CalculateAmortization computes flat-interest repayment figures. Intermediate values
// keep full precision; each stored field is rounded half-to-even to cents.
func CalculateAmortization(principal decimal.Decimal, months int, annualRate decimal.Decimal) (Amortization, error) {
	if !principal.IsPositive() {
		return Amortization{}, ErrInvalidPrincipal
	}
	if months <= 0 {
		return Amortization{}, ErrInvalidDuration
	}

	n := decimal.NewFromInt(int64(months))
	monthlyInterest := principal.Mul(annualRate).Div(monthsPerYear)
	total := principal.Add(monthlyInterest.Mul(n))
	monthly := total.Div(n)

	return Amortization{
		MonthlyInterest: monthlyInterest.RoundBank(2),
		TotalRepayment:  total.RoundBank(2),
		MonthlyPayment:  monthly.RoundBank(2),
		InterestRate:    annualRate.Mul(decimal.NewFromInt(100)).RoundBank(2),
	}, nil
}

// Loan is a loan application with repayment figures fixed at creation.
type Loan struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	Amount            decimal.Decimal `json:"amount"`
	CurrencyCode      string          `json:"currency_code"`
	DurationMonths    int             `json:"duration_months"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	MonthlyPayment    decimal.Decimal `json:"monthly_payment"`
	TotalRepayment    decimal.Decimal `json:"total_repayment"`
	Status            LoanStatus      `json:"status"`
	RepaymentProgress decimal.Decimal `json:"repayment_progress"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewLoan builds a pending loan with its amortization computed once.
func NewLoan(userID uuid.UUID, principal decimal.Decimal, currency string, months int, now time.Time) (*Loan, error) {
	am, err := CalculateAmortization(principal, months, DefaultLoanInterestRate)
	if err != nil {
		return nil, err
	}
	return &Loan{
		ID:                uuid.New(),
		UserID:            userID,
		Amount:            principal.RoundBank(2),
		CurrencyCode:      currency,
		DurationMonths:    months,
		InterestRate:      am.InterestRate,
		MonthlyPayment:    am.MonthlyPayment,
		TotalRepayment:    am.TotalRepayment,
		Status:            LoanStatusPending,
		RepaymentProgress: decimal.Zero,
		CreatedAt:         now,
	}, nil
}
