package handler

import (
	"banking-ledger/internal/adapter/http/dto"
	"banking-ledger/internal/core/domain"
	"banking-ledger/internal/core/ports"
	"banking-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler handles account and transaction endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// GetAccount handles GET /api/v1/bank/account.
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	account, err := h.ledgerSvc.GetAccount(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountResponse(account))
}

// OpenAccount handles POST /api/v1/bank/account.
func (h *LedgerHandler) OpenAccount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	account, err := h.ledgerSvc.OpenAccount(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewAccountResponse(account))
}

// ListTransactions handles GET /api/v1/bank/transactions.
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	txns, err := h.ledgerSvc.ListTransactions(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, len(txns))
	for i := range txns {
		items[i] = dto.NewTransactionResponse(&txns[i])
	}
	response.OK(c, items)
}

// CreateTransaction handles POST /api/v1/bank/transactions.
// A failed posting is still 201: the failure is recorded on the transaction.
func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var header dto.IdempotencyHeader
	if err := c.ShouldBindHeader(&header); err != nil {
		response.Error(c, dto.BindingError(err))
		return
	}

	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindingError(err))
		return
	}
	dto.SanitizeStruct(&req)

	_, txn, err := h.ledgerSvc.ApplyTransaction(c.Request.Context(), ports.ApplyTransactionRequest{
		UserID:          userID,
		TransactionType: domain.TransactionType(req.TransactionType),
		Amount:          req.Amount,
		CurrencyCode:    req.CurrencyCode,
		Description:     req.Description,
		Metadata:        req.Metadata,
		IdempotencyKey:  header.Key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransactionResponse(txn))
}
