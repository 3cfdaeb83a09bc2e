package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"banking-ledger/internal/core/domain"
	"banking-ledger/internal/core/ports"
	"banking-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CardServiceImpl implements ports.CardService.
type CardServiceImpl struct {
	cardRepo     ports.CardRepository
	purchaseRepo ports.CardPurchaseRepository
	encSvc       ports.EncryptionService
	secrets      ports.SecretGenerator
	notifier     ports.ActivityNotifier
	metrics      ports.Metrics
	transactor   ports.DBTransactor
	txTimeout    time.Duration
	log          zerolog.Logger
}

// NewCardService creates a new CardServiceImpl.
func NewCardService(
	cardRepo ports.CardRepository,
	purchaseRepo ports.CardPurchaseRepository,
	encSvc ports.EncryptionService,
	secrets ports.SecretGenerator,
	notifier ports.ActivityNotifier,
	metrics ports.Metrics,
	transactor ports.DBTransactor,
	txTimeout time.Duration,
	log zerolog.Logger,
) *CardServiceImpl {
	return &CardServiceImpl{
		cardRepo:     cardRepo,
		purchaseRepo: purchaseRepo,
		encSvc:       encSvc,
		secrets:      secrets,
		notifier:     notifier,
		metrics:      metrics,
		transactor:   transactor,
		txTimeout:    txTimeout,
		log:          log,
	}
}

// CreateCard issues a new card. An empty type means virtual.
func (s *CardServiceImpl) CreateCard(ctx context.Context, userID uuid.UUID, cardType domain.CardType) (*domain.Card, error) {
	if cardType == "" {
		cardType = domain.CardTypeVirtual
	}
	if !cardType.IsValid() {
		return nil, apperror.ValidationFields(map[string]string{"card_type": "must be one of: virtual, physical"})
	}

	pan, err := s.secrets.CardNumber()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate card number: %w", err))
	}
	cvv, err := s.secrets.CVV()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate cvv: %w", err))
	}

	card := domain.NewCard(userID, cardType, domain.MaskCardNumber(pan), time.Now().UTC())

	if card.NumberEncrypted, err = s.encSvc.Encrypt(pan); err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("seal card number: %w", err))
	}
	if card.CVVEncrypted, err = s.encSvc.Encrypt(cvv); err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("seal cvv: %w", err))
	}

	if err := s.cardRepo.Create(ctx, card); err != nil {
		return nil, storageError("create card", err)
	}

	s.metrics.IncCardEvent("created")
	s.notifier.Notify(ctx, domain.NewActivityEvent(userID, domain.ActivityCardPurchase, map[string]string{
		"card_id":   card.ID.String(),
		"card_type": string(card.CardType),
		"amount":    card.PurchaseAmount.StringFixed(2),
		"status":    string(card.PurchaseStatus),
	}))

	s.log.Info().
		Str("card_id", card.ID.String()).
		Str("user_id", userID.String()).
		Str("card_type", string(card.CardType)).
		Str("status", string(card.PurchaseStatus)).
		Msg("card created")

	return card, nil
}

// PayCard settles the issuance fee of a pending card. It does not move account balances.
func (s *CardServiceImpl) PayCard(ctx context.Context, cardID, userID uuid.UUID) (*domain.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("begin tx", err)
	}
	defer dbTx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck

	card, err := s.cardRepo.GetByIDForUpdate(ctx, dbTx, cardID, userID)
	if err != nil {
		return nil, storageError("lock card", err)
	}
	if card == nil {
		return nil, apperror.ErrCardNotFound()
	}

	if err := card.MarkPaid(); err != nil {
		if errors.Is(err, domain.ErrCardAlreadyPaid) {
			return nil, apperror.ErrCardAlreadyPaid()
		}
		return nil, apperror.InternalError(err)
	}

	if err := s.cardRepo.UpdateStatus(ctx, dbTx, card.ID, card.PurchaseStatus); err != nil {
		return nil, storageError("update card status", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("commit tx", err)
	}

	s.metrics.IncCardEvent("paid")
	s.log.Info().
		Str("card_id", card.ID.String()).
		Str("user_id", userID.String()).
		Str("amount", card.PurchaseAmount.StringFixed(2)).
		Msg("card payment recorded")

	return card, nil
}

// ListCards returns the user's cards, newest first.
func (s *CardServiceImpl) ListCards(ctx context.Context, userID uuid.UUID) ([]domain.Card, error) {
	cards, err := s.cardRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageError("list cards", err)
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	return cards, nil
}

// RecordPurchase appends an informational purchase to one of the user's cards.
func (s *CardServiceImpl) RecordPurchase(ctx context.Context, req ports.CardPurchaseRequest) (*domain.CardPurchase, error) {
	fields := map[string]string{}
	if msg := checkAmount(req.Amount, maxPurchaseAmount); msg != "" {
		fields["amount"] = msg
	}
	merchant := strings.TrimSpace(req.Merchant)
	if merchant == "" {
		fields["merchant"] = "is required"
	}
	if len(fields) > 0 {
		return nil, apperror.ValidationFields(fields)
	}

	card, err := s.cardRepo.GetByID(ctx, req.CardID, req.UserID)
	if err != nil {
		return nil, storageError("get card", err)
	}
	if card == nil {
		return nil, apperror.ErrCardNotFound()
	}

	purchase := &domain.CardPurchase{
		ID:        uuid.New(),
		CardID:    card.ID,
		Amount:    req.Amount,
		Merchant:  merchant,
		Location:  strings.TrimSpace(req.Location),
		Timestamp: time.Now().UTC(),
	}
	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		return nil, storageError("create card purchase", err)
	}

	s.metrics.IncCardEvent("purchase")
	s.notifier.Notify(ctx, domain.NewActivityEvent(req.UserID, domain.ActivityCardPurchase, map[string]string{
		"card_id":  card.ID.String(),
		"merchant": purchase.Merchant,
		"amount":   purchase.Amount.StringFixed(2),
	}))

	return purchase, nil
}

// ListPurchases returns the purchase history of one of the user's cards.
func (s *CardServiceImpl) ListPurchases(ctx context.Context, cardID, userID uuid.UUID) ([]domain.CardPurchase, error) {
	card, err := s.cardRepo.GetByID(ctx, cardID, userID)
	if err != nil {
		return nil, storageError("get card", err)
	}
	if card == nil {
		return nil, apperror.ErrCardNotFound()
	}

	purchases, err := s.purchaseRepo.ListByCard(ctx, card.ID)
	if err != nil {
		return nil, storageError("list card purchases", err)
	}
	if purchases == nil {
		purchases = []domain.CardPurchase{}
	}
	return purchases, nil
}
