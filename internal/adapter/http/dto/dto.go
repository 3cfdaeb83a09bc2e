package dto

import (
	"time"

	"banking-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// moneyString renders a stored amount with exactly two decimal places.
func moneyString(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ---- Requests ----

// CreateTransactionRequest is the request body for POST /bank/transactions.
type CreateTransactionRequest struct {
	TransactionType string          `json:"transaction_type" binding:"required,oneof=deposit withdrawal transfer payment card_purchase"`
	Amount          decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	CurrencyCode    string          `json:"currency_code" binding:"required,currency_code"`
	Description     string          `json:"description" binding:"max=255"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// IdempotencyHeader carries the optional Idempotency-Key of a posting.
type IdempotencyHeader struct {
	Key string `header:"Idempotency-Key" binding:"omitempty,max=64,safe_id"`
}

// CreateCardRequest is the request body for POST /cards.
type CreateCardRequest struct {
	CardType string `json:"card_type" binding:"required,oneof=virtual physical"`
}

// CardPurchaseRequest is the request body for POST /cards/:id/purchases.
type CardPurchaseRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	Merchant string          `json:"merchant" binding:"required,max=100"`
	Location string          `json:"location" binding:"max=100"`
}

// LoanApplicationRequest is the request body for POST /loans.
type LoanApplicationRequest struct {
	Amount         decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	DurationMonths int             `json:"duration_months" binding:"omitempty,min=1,max=360"`
	CurrencyCode   string          `json:"currency_code" binding:"omitempty,currency_code"`
}

// ---- Responses ----

// AccountResponse is the client projection of an account.
type AccountResponse struct {
	ID               string `json:"id"`
	AccountNumber    string `json:"account_number"`
	RoutingNumber    string `json:"routing_number"`
	CurrentBalance   string `json:"current_balance"`
	AvailableBalance string `json:"available_balance"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:               a.ID.String(),
		AccountNumber:    a.AccountNumber,
		RoutingNumber:    a.RoutingNumber,
		CurrentBalance:   moneyString(a.CurrentBalance),
		AvailableBalance: moneyString(a.AvailableBalance),
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        a.UpdatedAt.Format(time.RFC3339),
	}
}

// TransactionResponse is the client projection of a transaction.
type TransactionResponse struct {
	ID              string         `json:"id"`
	TransactionType string         `json:"transaction_type"`
	Amount          string         `json:"amount"`
	CurrencyCode    string         `json:"currency_code"`
	Status          string         `json:"status"`
	Description     string         `json:"description"`
	Metadata        map[string]any `json:"metadata"`
	Timestamp       string         `json:"timestamp"`
	CompletedAt     *string        `json:"completed_at,omitempty"`
}

func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:              t.ID.String(),
		TransactionType: string(t.TransactionType),
		Amount:          moneyString(t.Amount),
		CurrencyCode:    t.CurrencyCode,
		Status:          string(t.Status),
		Description:     t.Description,
		Metadata:        t.Metadata,
		Timestamp:       t.Timestamp.Format(time.RFC3339),
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

// CardResponse is the client projection of a card. The CVV and full number are never included.
type CardResponse struct {
	ID                   string  `json:"id"`
	CardType             string  `json:"card_type"`
	CardNumber           string  `json:"card_number"`
	ExpiryDate           string  `json:"expiry_date"`
	PurchaseAmount       string  `json:"purchase_amount"`
	PurchaseStatus       string  `json:"purchase_status"`
	PaymentDeadline      string  `json:"payment_deadline"`
	IsOverdue            bool    `json:"is_overdue"`
	SecondsUntilDeadline *int64  `json:"seconds_until_deadline,omitempty"`
	IssuedAt             *string `json:"issued_at,omitempty"`
	CreatedAt            string  `json:"created_at"`
}

// NewCardResponse projects c as seen at now; overdue state depends on the clock.
func NewCardResponse(c *domain.Card, now time.Time) CardResponse {
	resp := CardResponse{
		ID:              c.ID.String(),
		CardType:        string(c.CardType),
		CardNumber:      c.CardNumber,
		ExpiryDate:      c.ExpiryDate.Format("2006-01-02"),
		PurchaseAmount:  moneyString(c.PurchaseAmount),
		PurchaseStatus:  string(c.PurchaseStatus),
		PaymentDeadline: c.PaymentDeadline.Format(time.RFC3339),
		IsOverdue:       c.IsOverdue(now),
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
	}
	if d := c.TimeUntilDeadline(now); d != nil {
		secs := int64(d.Seconds())
		resp.SecondsUntilDeadline = &secs
	}
	if c.IssuedAt != nil {
		s := c.IssuedAt.Format(time.RFC3339)
		resp.IssuedAt = &s
	}
	return resp
}

// CardPurchaseResponse is the client projection of a card purchase.
type CardPurchaseResponse struct {
	ID        string `json:"id"`
	CardID    string `json:"card_id"`
	Amount    string `json:"amount"`
	Merchant  string `json:"merchant"`
	Location  string `json:"location"`
	Timestamp string `json:"timestamp"`
}

func NewCardPurchaseResponse(p *domain.CardPurchase) CardPurchaseResponse {
	return CardPurchaseResponse{
		ID:        p.ID.String(),
		CardID:    p.CardID.String(),
		Amount:    moneyString(p.Amount),
		Merchant:  p.Merchant,
		Location:  p.Location,
		Timestamp: p.Timestamp.Format(time.RFC3339),
	}
}

// LoanResponse is the client projection of a loan.
type LoanResponse struct {
	ID                string `json:"id"`
	Amount            string `json:"amount"`
	CurrencyCode      string `json:"currency_code"`
	DurationMonths    int    `json:"duration_months"`
	InterestRate      string `json:"interest_rate"`
	MonthlyPayment    string `json:"monthly_payment"`
	TotalRepayment    string `json:"total_repayment"`
	Status            string `json:"status"`
	RepaymentProgress string `json:"repayment_progress"`
	CreatedAt         string `json:"created_at"`
}

func NewLoanResponse(l *domain.Loan) LoanResponse {
	return LoanResponse{
		ID:                l.ID.String(),
		Amount:            moneyString(l.Amount),
		CurrencyCode:      l.CurrencyCode,
		DurationMonths:    l.DurationMonths,
		InterestRate:      moneyString(l.InterestRate),
		MonthlyPayment:    moneyString(l.MonthlyPayment),
		TotalRepayment:    moneyString(l.TotalRepayment),
		Status:            string(l.Status),
		RepaymentProgress: moneyString(l.RepaymentProgress),
		CreatedAt:         l.CreatedAt.Format(time.RFC3339),
	}
}
