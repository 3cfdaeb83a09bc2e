package postgres

import (
	"context"
	"fmt"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// LoanRepo implements ports.LoanRepository.
type LoanRepo struct {
	pool Pool
}

// NewLoanRepo creates a new LoanRepo.
func NewLoanRepo(pool Pool) *LoanRepo {
	return &LoanRepo{pool: pool}
}

// Create inserts a new loan.
func (r *LoanRepo) Create(ctx context.Context, l *domain.Loan) error {
	query := `INSERT INTO loans (id, user_id, amount, currency_code, duration_months, interest_rate,
		monthly_payment, total_repayment, status, repayment_progress, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.UserID, l.Amount, l.CurrencyCode, l.DurationMonths, l.InterestRate,
		l.MonthlyPayment, l.TotalRepayment, l.Status, l.RepaymentProgress, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

// ListByUser returns the user's loans, newest first.
func (r *LoanRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Loan, error) {
	query := `SELECT id, user_id, amount, currency_code, duration_months, interest_rate,
		monthly_payment, total_repayment, status, repayment_progress, created_at
		FROM loans WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		var l domain.Loan
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Amount, &l.CurrencyCode, &l.DurationMonths, &l.InterestRate,
			&l.MonthlyPayment, &l.TotalRepayment, &l.Status, &l.RepaymentProgress, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan loan row: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return loans, nil
}
