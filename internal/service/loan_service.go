package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"banking-ledger/internal/core/domain"
	"banking-ledger/internal/core/ports"
	"banking-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LoanServiceImpl implements ports.LoanService.
type LoanServiceImpl struct {
	loanRepo        ports.LoanRepository
	notifier        ports.ActivityNotifier
	metrics         ports.Metrics
	defaultCurrency string
	log             zerolog.Logger
}

// NewLoanService creates a new LoanServiceImpl.
func NewLoanService(
	loanRepo ports.LoanRepository,
	notifier ports.ActivityNotifier,
	metrics ports.Metrics,
	defaultCurrency string,
	log zerolog.Logger,
) *LoanServiceImpl {
	return &LoanServiceImpl{
		loanRepo:        loanRepo,
		notifier:        notifier,
		metrics:         metrics,
		defaultCurrency: defaultCurrency,
		log:             log,
	}
}

// ApplyForLoan records a pending loan with its repayment figures.
func (s *LoanServiceImpl) ApplyForLoan(ctx context.Context, req ports.LoanApplicationRequest) (*domain.Loan, error) {
	months := req.DurationMonths
	if months == 0 {
		months = domain.DefaultLoanDurationMonths
	}
	currency := strings.ToUpper(strings.TrimSpace(req.CurrencyCode))
	if currency == "" {
		currency = s.defaultCurrency
	}

	fields := map[string]string{}
	if msg := checkAmount(req.Amount, maxAmount); msg != "" {
		fields["amount"] = msg
	}
	if months < 0 {
		fields["duration_months"] = "must be at least 1"
	}
	if !domain.ValidCurrencyCode(currency) {
		fields["currency_code"] = "must be a 3-letter currency code"
	}
	if len(fields) > 0 {
		return nil, apperror.ValidationFields(fields)
	}

	loan, err := domain.NewLoan(req.UserID, req.Amount, currency, months, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPrincipal):
			return nil, apperror.ValidationFields(map[string]string{"amount": err.Error()})
		case errors.Is(err, domain.ErrInvalidDuration):
			return nil, apperror.ValidationFields(map[string]string{"duration_months": err.Error()})
		}
		return nil, apperror.InternalError(err)
	}
	// Total repayment shares the NUMERIC(15,2) bound of the principal.
	if loan.TotalRepayment.GreaterThanOrEqual(maxAmount) {
		return nil, apperror.ValidationFields(map[string]string{"amount": "total repayment exceeds the maximum amount"})
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, storageError("create loan", err)
	}

	s.metrics.IncLoanApplication()
	s.notifier.Notify(ctx, domain.NewActivityEvent(req.UserID, domain.ActivityLoanApplication, map[string]string{
		"loan_id":         loan.ID.String(),
		"amount":          loan.Amount.StringFixed(2),
		"duration_months": strconv.Itoa(loan.DurationMonths),
	}))

	s.log.Info().
		Str("loan_id", loan.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("amount", loan.Amount.StringFixed(2)).
		Int("duration_months", loan.DurationMonths).
		Msg("loan application received")

	return loan, nil
}

// ListLoans returns the user's loans, newest first.
func (s *LoanServiceImpl) ListLoans(ctx context.Context, userID uuid.UUID) ([]domain.Loan, error) {
	loans, err := s.loanRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageError("list loans", err)
	}
	if loans == nil {
		loans = []domain.Loan{}
	}
	return loans, nil
}
