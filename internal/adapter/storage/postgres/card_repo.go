package postgres

import (
	"context"
	"errors"
	"fmt"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const cardColumns = `id, user_id, card_type, card_number, number_encrypted, cvv_encrypted, expiry_date,
	purchase_amount, purchase_status, payment_deadline, issued_at, created_at`

// CardRepo implements ports.CardRepository.
type CardRepo struct {
	pool Pool
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(pool Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

// Create inserts a new card.
func (r *CardRepo) Create(ctx context.Context, c *domain.Card) error {
	query := `INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.CardType, c.CardNumber, c.NumberEncrypted, c.CVVEncrypted, c.ExpiryDate,
		c.PurchaseAmount, c.PurchaseStatus, c.PaymentDeadline, c.IssuedAt, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// GetByID fetches one of the user's cards (non-locking read).
func (r *CardRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 AND user_id = $2`

	c, err := scanCard(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, fmt.Errorf("get card by id: %w", err)
	}
	return c, nil
}

// GetByIDForUpdate fetches one of the user's cards with pessimistic locking.
// This MUST be called within a transaction.
func (r *CardRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 AND user_id = $2 FOR UPDATE`

	c, err := scanCard(tx.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, fmt.Errorf("get card for update: %w", err)
	}
	return c, nil
}

// UpdateStatus sets the purchase status within a transaction.
func (r *CardRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.CardStatus) error {
	query := `UPDATE cards SET purchase_status = $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update card status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card not found: %s", id)
	}
	return nil
}

// ListByUser returns the user's cards, newest first.
func (r *CardRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

// scanCard returns nil, nil when no row matched.
func scanCard(row pgx.Row) (*domain.Card, error) {
	c := &domain.Card{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.CardType, &c.CardNumber, &c.NumberEncrypted, &c.CVVEncrypted, &c.ExpiryDate,
		&c.PurchaseAmount, &c.PurchaseStatus, &c.PaymentDeadline, &c.IssuedAt, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}
