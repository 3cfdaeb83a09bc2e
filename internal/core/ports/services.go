package ports

import (
	"context"
	"time"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EncryptionService seals and opens card secrets.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SecretGenerator produces random identifiers from a cryptographically secure source.
type SecretGenerator interface {
	// CardNumber returns a 16-digit PAN with a valid Luhn check digit.
	CardNumber() (string, error)
	// CVV returns a 3-digit verification code.
	CVV() (string, error)
	// AccountNumber returns a PW-prefixed account number with eight random digits.
	AccountNumber() (string, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ActivityNotifier delivers lifecycle events to the activity feed.
// Notify never blocks the caller and never reports delivery failures.
type ActivityNotifier interface {
	Notify(ctx context.Context, event *domain.ActivityEvent)
}

// ActivitySink is one destination of activity events (database table, message topic).
type ActivitySink interface {
	Publish(ctx context.Context, event *domain.ActivityEvent) error
	Name() string
}

// Metrics records ledger outcomes.
type Metrics interface {
	ObserveTransaction(txType domain.TransactionType, status domain.TransactionStatus, elapsed time.Duration)
	IncCardEvent(event string)
	IncLoanApplication()
	IncActivityDelivery(sink string, err error)
}

// --- Service Ports (Business Logic) ---

// LedgerService owns the account balance and the transaction log.
type LedgerService interface {
	ApplyTransaction(ctx context.Context, req ApplyTransactionRequest) (*domain.Account, *domain.Transaction, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
	OpenAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
}

// ApplyTransactionRequest holds validated input for a ledger posting.
type ApplyTransactionRequest struct {
	UserID          uuid.UUID
	TransactionType domain.TransactionType
	Amount          decimal.Decimal
	CurrencyCode    string
	Description     string
	Metadata        map[string]any
	IdempotencyKey  string // Optional
}

// CardService manages card issuance, fee payment and purchase history.
type CardService interface {
	CreateCard(ctx context.Context, userID uuid.UUID, cardType domain.CardType) (*domain.Card, error)
	PayCard(ctx context.Context, cardID, userID uuid.UUID) (*domain.Card, error)
	ListCards(ctx context.Context, userID uuid.UUID) ([]domain.Card, error)
	RecordPurchase(ctx context.Context, req CardPurchaseRequest) (*domain.CardPurchase, error)
	ListPurchases(ctx context.Context, cardID, userID uuid.UUID) ([]domain.CardPurchase, error)
}

// CardPurchaseRequest holds input for recording a card purchase.
type CardPurchaseRequest struct {
	UserID   uuid.UUID
	CardID   uuid.UUID
	Amount   decimal.Decimal
	Merchant string
	Location string
}

// LoanService handles loan applications.
type LoanService interface {
	ApplyForLoan(ctx context.Context, req LoanApplicationRequest) (*domain.Loan, error)
	ListLoans(ctx context.Context, userID uuid.UUID) ([]domain.Loan, error)
}

// LoanApplicationRequest holds input for a loan application.
type LoanApplicationRequest struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	DurationMonths int    // 0 = default duration
	CurrencyCode   string // empty = configured default currency
}
