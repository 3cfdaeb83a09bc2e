package memory

import (
	"context"
	"fmt"
	"slices"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CardRepo implements ports.CardRepository over the memory store.
type CardRepo struct {
	store *Store
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(store *Store) *CardRepo {
	return &CardRepo{store: store}
}

func (r *CardRepo) Create(_ context.Context, c *domain.Card) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.cards[c.ID]; ok {
		return fmt.Errorf("card %s already exists", c.ID)
	}
	r.store.cards[c.ID] = *c
	return nil
}

// GetByID returns the card when it belongs to userID, or nil, nil.
func (r *CardRepo) GetByID(_ context.Context, id, userID uuid.UUID) (*domain.Card, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.cards[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	return &c, nil
}

// GetByIDForUpdate locks the card for the rest of the unit of work.
func (r *CardRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID) (*domain.Card, error) {
	mtx, err := unitOfWork(tx)
	if err != nil {
		return nil, err
	}
	if err := mtx.lock(ctx, cardLockKey(id)); err != nil {
		return nil, fmt.Errorf("get card for update: %w", err)
	}
	return r.GetByID(ctx, id, userID)
}

// UpdateStatus stages a status change for commit. The card must be locked.
func (r *CardRepo) UpdateStatus(_ context.Context, tx pgx.Tx, id uuid.UUID, status domain.CardStatus) error {
	mtx, err := unitOfWork(tx)
	if err != nil {
		return err
	}
	if _, ok := mtx.held[cardLockKey(id)]; !ok {
		return fmt.Errorf("update card status: card %s is not locked", id)
	}
	return mtx.stage(func(s *Store) {
		c := s.cards[id]
		c.PurchaseStatus = status
		s.cards[id] = c
	})
}

// ListByUser returns the user's cards, newest first.
func (r *CardRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Card, error) {
	r.store.mu.RLock()
	var cards []domain.Card
	for _, c := range r.store.cards {
		if c.UserID == userID {
			cards = append(cards, c)
		}
	}
	r.store.mu.RUnlock()

	slices.SortFunc(cards, func(a, b domain.Card) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return cards, nil
}

// CardPurchaseRepo implements ports.CardPurchaseRepository over the memory store.
type CardPurchaseRepo struct {
	store *Store
}

// NewCardPurchaseRepo creates a new CardPurchaseRepo.
func NewCardPurchaseRepo(store *Store) *CardPurchaseRepo {
	return &CardPurchaseRepo{store: store}
}

func (r *CardPurchaseRepo) Create(_ context.Context, p *domain.CardPurchase) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.purchases[p.CardID] = append(r.store.purchases[p.CardID], *p)
	return nil
}

// ListByCard returns the card's purchases, newest first.
func (r *CardPurchaseRepo) ListByCard(_ context.Context, cardID uuid.UUID) ([]domain.CardPurchase, error) {
	r.store.mu.RLock()
	purchases := slices.Clone(r.store.purchases[cardID])
	r.store.mu.RUnlock()

	slices.SortStableFunc(purchases, func(a, b domain.CardPurchase) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return purchases, nil
}
