package handler

import (
	"time"

	"banking-ledger/internal/adapter/http/dto"
	"banking-ledger/internal/core/domain"
	"banking-ledger/internal/core/ports"
	"banking-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// CardHandler handles card endpoints.
type CardHandler struct {
	cardSvc ports.CardService
	now     func() time.Time
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardSvc ports.CardService) *CardHandler {
	return &CardHandler{cardSvc: cardSvc, now: time.Now}
}

// ListCards handles GET /api/v1/cards.
func (h *CardHandler) ListCards(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	cards, err := h.cardSvc.ListCards(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	now := h.now()
	items := make([]dto.CardResponse, len(cards))
	for i := range cards {
		items[i] = dto.NewCardResponse(&cards[i], now)
	}
	response.OK(c, items)
}

// CreateCard handles POST /api/v1/cards.
func (h *CardHandler) CreateCard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindingError(err))
		return
	}

	card, err := h.cardSvc.CreateCard(c.Request.Context(), userID, domain.CardType(req.CardType))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewCardResponse(card, h.now()))
}

// PayCard handles POST /api/v1/cards/:id/pay.
func (h *CardHandler) PayCard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	cardID, ok := cardIDParam(c)
	if !ok {
		return
	}

	if _, err := h.cardSvc.PayCard(c.Request.Context(), cardID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Card payment successful")
}

// ListPurchases handles GET /api/v1/cards/:id/purchases.
func (h *CardHandler) ListPurchases(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	cardID, ok := cardIDParam(c)
	if !ok {
		return
	}

	purchases, err := h.cardSvc.ListPurchases(c.Request.Context(), cardID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.CardPurchaseResponse, len(purchases))
	for i := range purchases {
		items[i] = dto.NewCardPurchaseResponse(&purchases[i])
	}
	response.OK(c, items)
}

// RecordPurchase handles POST /api/v1/cards/:id/purchases.
func (h *CardHandler) RecordPurchase(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	cardID, ok := cardIDParam(c)
	if !ok {
		return
	}

	var req dto.CardPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindingError(err))
		return
	}
	dto.SanitizeStruct(&req)

	purchase, err := h.cardSvc.RecordPurchase(c.Request.Context(), ports.CardPurchaseRequest{
		UserID:   userID,
		CardID:   cardID,
		Amount:   req.Amount,
		Merchant: req.Merchant,
		Location: req.Location,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewCardPurchaseResponse(purchase))
}
