package service

import (
	"context"
	"errors"
	"testing"

	"banking-ledger/internal/core/domain"
	"banking-ledger/internal/core/ports"
	"banking-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type loanTestDeps struct {
	svc      *LoanServiceImpl
	loanRepo *mocks.MockLoanRepository
	notifier *mocks.MockActivityNotifier
	metrics  *mocks.MockMetrics
}

func setupLoanService(t *testing.T) *loanTestDeps {
	ctrl := gomock.NewController(t)
	d := &loanTestDeps{
		loanRepo: mocks.NewMockLoanRepository(ctrl),
		notifier: mocks.NewMockActivityNotifier(ctrl),
		metrics:  mocks.NewMockMetrics(ctrl),
	}
	d.svc = NewLoanService(d.loanRepo, d.notifier, d.metrics, "EUR", zerolog.Nop())
	return d
}

func TestLoanService_ApplyForLoan_Defaults(t *testing.T) {
	d := setupLoanService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.loanRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.metrics.EXPECT().IncLoanApplication()

	var event *domain.ActivityEvent
	d.notifier.EXPECT().Notify(ctx, gomock.Any()).Do(func(_ context.Context, e *domain.ActivityEvent) { event = e })

	loan, err := d.svc.ApplyForLoan(ctx, ports.LoanApplicationRequest{
		UserID: userID,
		Amount: decimal.RequireFromString("1200.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 12, loan.DurationMonths)
	assert.Equal(t, "EUR", loan.CurrencyCode)
	assert.Equal(t, domain.LoanStatusPending, loan.Status)
	assert.Equal(t, "5.00", loan.InterestRate.StringFixed(2))
	assert.Equal(t, "105.00", loan.MonthlyPayment.StringFixed(2))
	assert.Equal(t, "1260.00", loan.TotalRepayment.StringFixed(2))

	require.NotNil(t, event)
	assert.Equal(t, domain.ActivityLoanApplication, event.ActionType)
	assert.Equal(t, "12", event.Details["duration_months"])
}

func TestLoanService_ApplyForLoan_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   ports.LoanApplicationRequest
		field string
	}{
		{"zero principal", ports.LoanApplicationRequest{Amount: decimal.Zero}, "amount"},
		{"negative duration", ports.LoanApplicationRequest{Amount: decimal.NewFromInt(100), DurationMonths: -3}, "duration_months"},
		{"bad currency", ports.LoanApplicationRequest{Amount: decimal.NewFromInt(100), CurrencyCode: "EURO"}, "currency_code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupLoanService(t)
			tt.req.UserID = uuid.New()
			_, err := d.svc.ApplyForLoan(context.Background(), tt.req)
			appErr := assertAppError(t, err, "VAL_001")
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestLoanService_ApplyForLoan_TotalRepaymentLimit(t *testing.T) {
	t.Run("repayment just below the limit", func(t *testing.T) {
		d := setupLoanService(t)
		ctx := context.Background()

		d.loanRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
		d.metrics.EXPECT().IncLoanApplication()
		d.notifier.EXPECT().Notify(ctx, gomock.Any())

		loan, err := d.svc.ApplyForLoan(ctx, ports.LoanApplicationRequest{
			UserID: uuid.New(),
			Amount: decimal.RequireFromString("9523809523809.50"),
		})
		require.NoError(t, err)
		assert.True(t, loan.TotalRepayment.LessThan(decimal.New(1, 13)), loan.TotalRepayment.String())
	})

	t.Run("repayment reaching the limit", func(t *testing.T) {
		d := setupLoanService(t)

		// Principal fits, but 5% interest rounds the total up to 10000000000000.00.
		_, err := d.svc.ApplyForLoan(context.Background(), ports.LoanApplicationRequest{
			UserID: uuid.New(),
			Amount: decimal.RequireFromString("9523809523809.52"),
		})
		appErr := assertAppError(t, err, "VAL_001")
		assert.Contains(t, appErr.Fields, "amount")
	})

	t.Run("largest principal", func(t *testing.T) {
		d := setupLoanService(t)

		_, err := d.svc.ApplyForLoan(context.Background(), ports.LoanApplicationRequest{
			UserID: uuid.New(),
			Amount: decimal.RequireFromString("9999999999999.99"),
		})
		assertAppError(t, err, "VAL_001")
	})
}

func TestLoanService_ApplyForLoan_StorageError(t *testing.T) {
	d := setupLoanService(t)
	ctx := context.Background()

	d.loanRepo.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("connection refused"))

	_, err := d.svc.ApplyForLoan(ctx, ports.LoanApplicationRequest{
		UserID:         uuid.New(),
		Amount:         decimal.NewFromInt(500),
		DurationMonths: 6,
		CurrencyCode:   "usd",
	})
	assertAppError(t, err, "SYS_001")
}

func TestLoanService_ListLoans(t *testing.T) {
	d := setupLoanService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.loanRepo.EXPECT().ListByUser(ctx, userID).Return(nil, nil)
	loans, err := d.svc.ListLoans(ctx, userID)
	require.NoError(t, err)
	assert.NotNil(t, loans)
	assert.Empty(t, loans)
}
