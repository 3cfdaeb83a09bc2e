package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardType distinguishes virtual from physical cards.
type CardType string

const (
	CardTypeVirtual  CardType = "virtual"
	CardTypePhysical CardType = "physical"
)

// IsValid reports whether t is a known card type.
func (t CardType) IsValid() bool {
	return t == CardTypeVirtual || t == CardTypePhysical
}

// CardStatus represents the purchase/payment lifecycle of a card.
type CardStatus string

const (
	CardStatusPendingPayment CardStatus = "pending_payment"
	CardStatusPaid           CardStatus = "paid"
	CardStatusIssued         CardStatus = "issued"
	CardStatusActive         CardStatus = "active"
	CardStatusExpired        CardStatus = "expired"
	CardStatusCancelled      CardStatus = "cancelled"
)

const (
	// CardPaymentWindow is how long a new card's issuance fee may stay unpaid.
	CardPaymentWindow = 7 * 24 * time.Hour
	// CardValidityYears is the lifetime printed on a new card.
	CardValidityYears = 3
)

// PhysicalCardFee is the issuance fee charged for physical cards.
var PhysicalCardFee = decimal.RequireFromString("50.00")

// ErrCardAlreadyPaid is returned by MarkPaid when the card is not awaiting payment.
var ErrCardAlreadyPaid = errors.New("card already paid")

// Card is a virtual or physical payment card. Number and CVV are stored sealed.
type Card struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	CardType        CardType        `json:"card_type"`
	CardNumber      string          `json:"card_number"` // Masked: XXXX-XXXX-XXXX-1234
	NumberEncrypted string          `json:"-"`
	CVVEncrypted    string          `json:"-"` // Never expose
	ExpiryDate      time.Time       `json:"expiry_date"`
	PurchaseAmount  decimal.Decimal `json:"purchase_amount"`
	PurchaseStatus  CardStatus      `json:"purchase_status"`
	PaymentDeadline time.Time       `json:"payment_deadline"`
	IssuedAt        *time.Time      `json:"issued_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewCard builds a card in its initial state. Virtual cards are free and start paid;
// physical cards carry the issuance fee and wait for payment.
func NewCard(userID uuid.UUID, cardType CardType, maskedNumber string, now time.Time) *Card {
	c := &Card{
		ID:              uuid.New(),
		UserID:          userID,
		CardType:        cardType,
		CardNumber:      maskedNumber,
		ExpiryDate:      truncateToDate(now.AddDate(CardValidityYears, 0, 0)),
		PurchaseAmount:  decimal.Zero,
		PurchaseStatus:  CardStatusPaid,
		PaymentDeadline: now.Add(CardPaymentWindow),
		CreatedAt:       now,
	}
	if cardType == CardTypePhysical {
		c.PurchaseAmount = PhysicalCardFee
		c.PurchaseStatus = CardStatusPendingPayment
	}
	return c
}

// IsOverdue reports whether the fee is still unpaid after the deadline.
// It depends on the wall clock and is never stored.
func (c *Card) IsOverdue(now time.Time) bool {
	return c.PurchaseStatus == CardStatusPendingPayment && now.After(c.PaymentDeadline)
}

// TimeUntilDeadline returns the remaining payment window, or nil when no payment is due.
// The duration is negative once the deadline has passed.
func (c *Card) TimeUntilDeadline(now time.Time) *time.Duration {
	if c.PurchaseStatus != CardStatusPendingPayment {
		return nil
	}
	d := c.PaymentDeadline.Sub(now)
	return &d
}

// MarkPaid transitions pending_payment to paid. Any other state is rejected.
func (c *Card) MarkPaid() error {
	if c.PurchaseStatus != CardStatusPendingPayment {
		return ErrCardAlreadyPaid
	}
	c.PurchaseStatus = CardStatusPaid
	return nil
}

// MaskCardNumber renders a PAN as XXXX-XXXX-XXXX-1234.
func MaskCardNumber(pan string) string {
	last4 := pan
	if len(pan) > 4 {
		last4 = pan[len(pan)-4:]
	}
	return "XXXX-XXXX-XXXX-" + last4
}

// CardPurchase is an informational purchase entry tied to a card. It does not move
// account balances.
type CardPurchase struct {
	ID        uuid.UUID       `json:"id"`
	CardID    uuid.UUID       `json:"card_id"`
	Amount    decimal.Decimal `json:"amount"`
	Merchant  string          `json:"merchant"`
	Location  string          `json:"location"`
	Timestamp time.Time       `json:"timestamp"`
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
