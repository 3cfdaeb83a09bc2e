package handler

import (
	"banking-ledger/internal/adapter/http/dto"
	"banking-ledger/internal/core/ports"
	"banking-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LoanHandler handles loan endpoints.
type LoanHandler struct {
	loanSvc ports.LoanService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loanSvc ports.LoanService) *LoanHandler {
	return &LoanHandler{loanSvc: loanSvc}
}

// ListLoans handles GET /api/v1/loans.
func (h *LoanHandler) ListLoans(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	loans, err := h.loanSvc.ListLoans(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.LoanResponse, len(loans))
	for i := range loans {
		items[i] = dto.NewLoanResponse(&loans[i])
	}
	response.OK(c, items)
}

// ApplyForLoan handles POST /api/v1/loans.
func (h *LoanHandler) ApplyForLoan(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.LoanApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, dto.BindingError(err))
		return
	}

	loan, err := h.loanSvc.ApplyForLoan(c.Request.Context(), ports.LoanApplicationRequest{
		UserID:         userID,
		Amount:         req.Amount,
		DurationMonths: req.DurationMonths,
		CurrencyCode:   req.CurrencyCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewLoanResponse(loan))
}
