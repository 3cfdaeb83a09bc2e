package postgres

import (
	"context"
	"fmt"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// CardPurchaseRepo implements ports.CardPurchaseRepository.
type CardPurchaseRepo struct {
	pool Pool
}

// NewCardPurchaseRepo creates a new CardPurchaseRepo.
func NewCardPurchaseRepo(pool Pool) *CardPurchaseRepo {
	return &CardPurchaseRepo{pool: pool}
}

func (r *CardPurchaseRepo) Create(ctx context.Context, p *domain.CardPurchase) error {
	query := `INSERT INTO card_purchases (id, card_id, amount, merchant, location, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, p.ID, p.CardID, p.Amount, p.Merchant, p.Location, p.Timestamp)
	if err != nil {
		return fmt.Errorf("insert card purchase: %w", err)
	}
	return nil
}

// ListByCard returns the card's purchases, newest first.
func (r *CardPurchaseRepo) ListByCard(ctx context.Context, cardID uuid.UUID) ([]domain.CardPurchase, error) {
	query := `SELECT id, card_id, amount, merchant, location, timestamp
		FROM card_purchases WHERE card_id = $1 ORDER BY timestamp DESC`

	rows, err := r.pool.Query(ctx, query, cardID)
	if err != nil {
		return nil, fmt.Errorf("list card purchases: %w", err)
	}
	defer rows.Close()

	var purchases []domain.CardPurchase
	for rows.Next() {
		var p domain.CardPurchase
		if err := rows.Scan(&p.ID, &p.CardID, &p.Amount, &p.Merchant, &p.Location, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan card purchase row: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card purchases: %w", err)
	}
	return purchases, nil
}
