package handler

import (
	"banking-ledger/internal/adapter/http/middleware"
	"banking-ledger/pkg/apperror"
	"banking-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requireUser returns the authenticated user or writes AUTH_003.
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return userID, true
}

// cardIDParam parses the :id path segment. A malformed ID cannot name any card.
func cardIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrCardNotFound())
		return uuid.Nil, false
	}
	return id, true
}
