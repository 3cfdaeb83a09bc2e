package service

import (
	"context"
	"errors"
	"testing"
	"time"

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

type cardTestDeps struct {
	svc          *CardServiceImpl
	cardRepo     *mocks.MockCardRepository
	purchaseRepo *mocks.MockCardPurchaseRepository
	encSvc       *mocks.MockEncryptionService
	secrets      *mocks.MockSecretGenerator
	notifier     *mocks.MockActivityNotifier
	metrics      *mocks.MockMetrics
	transactor   *mocks.MockDBTransactor
}

func setupCardService(t *testing.T) *cardTestDeps {
	ctrl := gomock.NewController(t)
	d := &cardTestDeps{
		cardRepo:     mocks.NewMockCardRepository(ctrl),
		purchaseRepo: mocks.NewMockCardPurchaseRepository(ctrl),
		encSvc:       mocks.NewMockEncryptionService(ctrl),
		secrets:      mocks.NewMockSecretGenerator(ctrl),
		notifier:     mocks.NewMockActivityNotifier(ctrl),
		metrics:      mocks.NewMockMetrics(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
	}
	d.svc = NewCardService(
		d.cardRepo, d.purchaseRepo, d.encSvc, d.secrets,
		d.notifier, d.metrics, d.transactor, time.Second, zerolog.Nop(),
	)
	return d
}

func pendingCard(userID uuid.UUID) *domain.Card {
	c := domain.NewCard(userID, domain.CardTypePhysical, "XXXX-XXXX-XXXX-1111", time.Now().UTC())
	return c
}

// ==================== CreateCard Tests ====================

func TestCardService_CreateCard_Physical(t *testing.T) {
	d := setupCardService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.secrets.EXPECT().CardNumber().Return("4111123412344242", nil)
	d.secrets.EXPECT().CVV().Return("123", nil)
	d.encSvc.EXPECT().Encrypt("4111123412344242").Return("sealed-pan", nil)
	d.encSvc.EXPECT().Encrypt("123").Return("sealed-cvv", nil)
	d.cardRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.metrics.EXPECT().IncCardEvent("created")

	var event *domain.ActivityEvent
	d.notifier.EXPECT().Notify(ctx, gomock.Any()).Do(func(_ context.Context, e *domain.ActivityEvent) { event = e })

	card, err := d.svc.CreateCard(ctx, userID, domain.CardTypePhysical)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusPendingPayment, card.PurchaseStatus)
	assert.Equal(t, "50.00", card.PurchaseAmount.StringFixed(2))
	assert.Equal(t, "XXXX-XXXX-XXXX-4242", card.CardNumber)
	assert.Equal(t, "sealed-pan", card.NumberEncrypted)
	assert.Equal(t, "sealed-cvv", card.CVVEncrypted)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), card.PaymentDeadline, time.Minute)
	assert.False(t, card.IsOverdue(time.Now()))

	require.NotNil(t, event)
	assert.Equal(t, domain.ActivityCardPurchase, event.ActionType)
	assert.Equal(t, "50.00", event.Details["amount"])
}

func TestCardService_CreateCard_DefaultsToVirtual(t *testing.T) {
	d := setupCardService(t)
	ctx := context.Background()

	d.secrets.EXPECT().CardNumber().Return("4111000000000000", nil)
	d.secrets.EXPECT().CVV().Return("000", nil)
	d.encSvc.EXPECT().Encrypt(gomock.Any()).Return("sealed", nil).Times(2)
	d.cardRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.metrics.EXPECT().IncCardEvent("created")
	d.notifier.EXPECT().Notify(ctx, gomock.Any())

	card, err := d.svc.CreateCard(ctx, uuid.New(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.CardTypeVirtual, card.CardType)
	assert.Equal(t, domain.CardStatusPaid, card.PurchaseStatus)
	assert.True(t, card.PurchaseAmount.IsZero())
}

func TestCardService_CreateCard_InvalidType(t *testing.T) {
	d := setupCardService(t)

	_, err := d.svc.CreateCard(context.Background(), uuid.New(), "metal")
	appErr := assertAppError(t, err, "VAL_001")
	assert.Contains(t, appErr.Fields, "card_type")
}

func TestCardService_CreateCard_EncryptionFailure(t *testing.T) {
	d := setupCardService(t)

	d.secrets.EXPECT().CardNumber().Return("4111000000000000", nil)
	d.secrets.EXPECT().CVV().Return("000", nil)
	d.encSvc.EXPECT().Encrypt(gomock.Any()).Return("", errors.New("bad key"))

	_, err := d.svc.CreateCard(context.Background(), uuid.New(), domain.CardTypeVirtual)
	assertAppError(t, err, "SYS_003")
}

// ==================== PayCard Tests ====================

func TestCardService_PayCard_Success(t *testing.T) {
	d := setupCardService(t)
	userID := uuid.New()
	card := pendingCard(userID)
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.cardRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, card.ID, userID).Return(card, nil)
	d.cardRepo.EXPECT().UpdateStatus(gomock.Any(), tx, card.ID, domain.CardStatusPaid).Return(nil)
	d.metrics.EXPECT().IncCardEvent("paid")

	paid, err := d.svc.PayCard(context.Background(), card.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusPaid, paid.PurchaseStatus)
	assert.True(t, tx.committed)
}

func TestCardService_PayCard_AlreadyPaid(t *testing.T) {
	d := setupCardService(t)
	userID := uuid.New()
	card := pendingCard(userID)
	card.PurchaseStatus = domain.CardStatusPaid
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.cardRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, card.ID, userID).Return(card, nil)

	_, err := d.svc.PayCard(context.Background(), card.ID, userID)
	assertAppError(t, err, "CRD_002")
	assert.False(t, tx.committed)
	assert.Equal(t, domain.CardStatusPaid, card.PurchaseStatus)
}

func TestCardService_PayCard_NotFound(t *testing.T) {
	d := setupCardService(t)
	tx := &mockTx{}
	cardID, userID := uuid.New(), uuid.New()

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.cardRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, cardID, userID).Return(nil, nil)

	_, err := d.svc.PayCard(context.Background(), cardID, userID)
	assertAppError(t, err, "CRD_001")
	assert.True(t, tx.rolledBack)
}

// ==================== Purchases Tests ====================

func TestCardService_RecordPurchase(t *testing.T) {
	d := setupCardService(t)
	ctx := context.Background()
	userID := uuid.New()
	card := pendingCard(userID)

	d.cardRepo.EXPECT().GetByID(ctx, card.ID, userID).Return(card, nil)
	d.purchaseRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.metrics.EXPECT().IncCardEvent("purchase")
	d.notifier.EXPECT().Notify(ctx, gomock.Any())

	p, err := d.svc.RecordPurchase(ctx, ports.CardPurchaseRequest{
		UserID:   userID,
		CardID:   card.ID,
		Amount:   decimal.RequireFromString("12.34"),
		Merchant: "  Corner Cafe ",
		Location: "Berlin",
	})
	require.NoError(t, err)
	assert.Equal(t, "Corner Cafe", p.Merchant)
	assert.Equal(t, card.ID, p.CardID)
}

func TestCardService_RecordPurchase_Validation(t *testing.T) {
	d := setupCardService(t)

	_, err := d.svc.RecordPurchase(context.Background(), ports.CardPurchaseRequest{
		UserID: uuid.New(),
		CardID: uuid.New(),
		Amount: decimal.Zero,
	})
	appErr := assertAppError(t, err, "VAL_001")
	assert.Contains(t, appErr.Fields, "amount")
	assert.Contains(t, appErr.Fields, "merchant")
}

func TestCardService_RecordPurchase_AmountLimit(t *testing.T) {
	t.Run("largest purchase fits", func(t *testing.T) {
		d := setupCardService(t)
		ctx := context.Background()
		userID := uuid.New()
		card := pendingCard(userID)

		d.cardRepo.EXPECT().GetByID(ctx, card.ID, userID).Return(card, nil)
		d.purchaseRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
		d.metrics.EXPECT().IncCardEvent("purchase")
		d.notifier.EXPECT().Notify(ctx, gomock.Any())

		p, err := d.svc.RecordPurchase(ctx, ports.CardPurchaseRequest{
			UserID: userID, CardID: card.ID, Amount: decimal.RequireFromString("99999999.99"), Merchant: "Yard",
		})
		require.NoError(t, err)
		assert.Equal(t, "99999999.99", p.Amount.StringFixed(2))
	})

	t.Run("one cent more is rejected", func(t *testing.T) {
		d := setupCardService(t)

		_, err := d.svc.RecordPurchase(context.Background(), ports.CardPurchaseRequest{
			UserID: uuid.New(), CardID: uuid.New(), Amount: decimal.RequireFromString("100000000.00"), Merchant: "Yard",
		})
		appErr := assertAppError(t, err, "VAL_001")
		assert.Contains(t, appErr.Fields, "amount")
	})
}

func TestCardService_ListPurchases_ForeignCard(t *testing.T) {
	d := setupCardService(t)
	ctx := context.Background()
	cardID, userID := uuid.New(), uuid.New()

	d.cardRepo.EXPECT().GetByID(ctx, cardID, userID).Return(nil, nil)

	_, err := d.svc.ListPurchases(ctx, cardID, userID)
	assertAppError(t, err, "CRD_001")
}

func TestCardService_ListCards(t *testing.T) {
	d := setupCardService(t)
	ctx := context.Background()
	userID := uuid.New()

	d.cardRepo.EXPECT().ListByUser(ctx, userID).Return([]domain.Card{*pendingCard(userID)}, nil)
	cards, err := d.svc.ListCards(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cards, 1)

	d.cardRepo.EXPECT().ListByUser(ctx, userID).Return(nil, errors.New("boom"))
	_, err = d.svc.ListCards(ctx, userID)
	assertAppError(t, err, "SYS_001")
}
