package handler

import (
	"net/http"

	"banking-ledger/internal/adapter/http/middleware"
	redisStore "banking-ledger/internal/adapter/storage/redis"
	"banking-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	CardSvc        ports.CardService
	LoanSvc        ports.LoanService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	MetricsHandler http.Handler // nil = /metrics not exposed
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	bank := v1.Group("/bank")
	{
		bank.GET("/account", rl("reads"), ledgerHandler.GetAccount)
		bank.POST("/account", rl("accounts"), ledgerHandler.OpenAccount)
		bank.GET("/transactions", rl("reads"), ledgerHandler.ListTransactions)
		bank.POST("/transactions", rl("transactions"), ledgerHandler.CreateTransaction)
	}

	cardHandler := NewCardHandler(deps.CardSvc)
	cards := v1.Group("/cards")
	{
		cards.GET("", rl("reads"), cardHandler.ListCards)
		cards.POST("", rl("cards"), cardHandler.CreateCard)
		cards.POST("/:id/pay", rl("cards"), cardHandler.PayCard)
		cards.GET("/:id/purchases", rl("reads"), cardHandler.ListPurchases)
		cards.POST("/:id/purchases", rl("cards"), cardHandler.RecordPurchase)
	}

	loanHandler := NewLoanHandler(deps.LoanSvc)
	loans := v1.Group("/loans")
	{
		loans.GET("", rl("reads"), loanHandler.ListLoans)
		loans.POST("", rl("loans"), loanHandler.ApplyForLoan)
	}

	return r
}
