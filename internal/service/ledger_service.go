package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"banking-ledger/internal/core/domain"
	"banking-ledger/internal/core/ports"
	"banking-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	idempotencyTTL = 24 * time.Hour

	maxAccountNumberAttempts = 5
)

// LedgerOptions carries the ledger settings from configuration.
type LedgerOptions struct {
	TxTimeout       time.Duration
	RoutingNumber   string
	DefaultCurrency string
}

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	idempRepo   ports.IdempotencyRepository // nil = idempotency keys ignored
	idempCache  ports.IdempotencyCache      // nil = no Redis fast path
	secrets     ports.SecretGenerator
	notifier    ports.ActivityNotifier
	metrics     ports.Metrics
	transactor  ports.DBTransactor
	opts        LedgerOptions
	log         zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	secrets ports.SecretGenerator,
	notifier ports.ActivityNotifier,
	metrics ports.Metrics,
	transactor ports.DBTransactor,
	opts LedgerOptions,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		idempRepo:   idempRepo,
		idempCache:  idempCache,
		secrets:     secrets,
		notifier:    notifier,
		metrics:     metrics,
		transactor:  transactor,
		opts:        opts,
		log:         log,
	}
}

// ApplyTransaction posts one transaction against the user's account.
// An insufficient debit is returned as a failed transaction, not as an error.
func (s *LedgerServiceImpl) ApplyTransaction(ctx context.Context, req ports.ApplyTransactionRequest) (*domain.Account, *domain.Transaction, error) {
	if err := validateTransactionRequest(req); err != nil {
		return nil, nil, err
	}

	if s.idempRepo == nil {
		req.IdempotencyKey = ""
	}

	var cacheKey string
	if req.IdempotencyKey != "" {
		// Layer 1: Redis fast path
		if s.idempCache != nil {
			cacheKey = buildIdempotencyKey(req.UserID, req.IdempotencyKey)
			cached, err := s.idempCache.Get(ctx, cacheKey)
			if err != nil {
				s.log.Warn().Err(err).Str("key", cacheKey).Msg("redis idempotency check failed, falling through to DB")
			}
			if cached != nil {
				return s.replayTransaction(ctx, req.UserID, cached)
			}
		}

		// Layer 2: committed idempotency log
		idempLog, err := s.idempRepo.Get(ctx, req.UserID, req.IdempotencyKey)
		if err != nil {
			return nil, nil, storageError("get idempotency log", err)
		}
		if idempLog != nil {
			return s.replayTransaction(ctx, req.UserID, idempLog.ResponseJSON)
		}
	}

	start := time.Now()
	account, txn, replay, err := s.settle(ctx, req)
	if errors.Is(err, domain.ErrIdempotencyKeyUsed) {
		// Lost the insert race on the unique key; the winner has committed.
		idempLog, getErr := s.idempRepo.Get(ctx, req.UserID, req.IdempotencyKey)
		if getErr != nil || idempLog == nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("idempotency key %q already used: %w", req.IdempotencyKey, err))
		}
		replay = idempLog.ResponseJSON
		err = nil
	}
	if err != nil {
		return nil, nil, err
	}
	if replay != nil {
		return s.replayTransaction(ctx, req.UserID, replay)
	}
	s.metrics.ObserveTransaction(txn.TransactionType, txn.Status, time.Since(start))

	// Post-process: cache in Redis (best-effort)
	if cacheKey != "" {
		if respJSON, err := json.Marshal(txn); err != nil {
			s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to marshal transaction for idempotency cache")
		} else if err := s.idempCache.Set(ctx, cacheKey, respJSON, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache idempotency in redis")
		}
	}

	s.notifier.Notify(ctx, domain.TransactionActivity(txn))

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("type", string(txn.TransactionType)).
		Str("amount", txn.Amount.StringFixed(2)).
		Str("status", string(txn.Status)).
		Msg("transaction applied")

	return account, txn, nil
}

// settle runs the locked read-modify-write of one posting inside a bounded unit of work.
// When the request's idempotency key was committed by an earlier unit of work, nothing is
// written and the logged response is returned instead.
func (s *LedgerServiceImpl) settle(ctx context.Context, req ports.ApplyTransactionRequest) (*domain.Account, *domain.Transaction, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, nil, storageError("begin tx", err)
	}
	// Rollback must still reach the store after the deadline fired.
	defer dbTx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck

	account, err := s.accountRepo.GetByUserIDForUpdate(ctx, dbTx, req.UserID)
	if err != nil {
		return nil, nil, nil, storageError("lock account", err)
	}
	if account == nil {
		return nil, nil, nil, apperror.ErrAccountNotFound()
	}

	if req.IdempotencyKey != "" {
		idempLog, err := s.idempRepo.GetForUpdate(ctx, dbTx, req.UserID, req.IdempotencyKey)
		if err != nil {
			return nil, nil, nil, storageError("lock idempotency key", err)
		}
		if idempLog != nil {
			return nil, nil, idempLog.ResponseJSON, nil
		}
	}

	now := time.Now().UTC()
	txn := domain.NewTransaction(req.UserID, req.TransactionType, req.Amount, req.CurrencyCode, req.Description, req.Metadata, now)

	next, err := account.Settle(txn, now)
	if err != nil {
		return nil, nil, nil, apperror.InternalError(fmt.Errorf("settle transaction: %w", err))
	}

	if txn.Status == domain.TransactionStatusCompleted {
		if err := s.accountRepo.UpdateBalances(ctx, dbTx, &next); err != nil {
			return nil, nil, nil, storageError("update balances", err)
		}
	}

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, nil, nil, storageError("create transaction", err)
	}

	if req.IdempotencyKey != "" {
		respJSON, err := json.Marshal(txn)
		if err != nil {
			return nil, nil, nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		err = s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
			UserID:        req.UserID,
			Key:           req.IdempotencyKey,
			TransactionID: txn.ID,
			ResponseJSON:  respJSON,
			CreatedAt:     now,
		})
		if errors.Is(err, domain.ErrIdempotencyKeyUsed) {
			return nil, nil, nil, err
		}
		if err != nil {
			return nil, nil, nil, storageError("save idempotency log", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, nil, storageError("commit tx", err)
	}

	return &next, txn, nil, nil
}

// replayTransaction returns a previously applied transaction with the current account.
func (s *LedgerServiceImpl) replayTransaction(ctx context.Context, userID uuid.UUID, cached []byte) (*domain.Account, *domain.Transaction, error) {
	var txn domain.Transaction
	if err := json.Unmarshal(cached, &txn); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("unmarshal logged transaction: %w", err))
	}
	account, err := s.GetAccount(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	s.log.Debug().Str("tx_id", txn.ID.String()).Msg("idempotent replay")
	return account, &txn, nil
}

// GetAccount returns the user's account.
func (s *LedgerServiceImpl) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storageError("get account", err)
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	return account, nil
}

// ListTransactions returns the user's transactions, newest first.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	txns, err := s.txRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageError("list transactions", err)
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	return txns, nil
}

// OpenAccount creates the user's zero-balance account.
func (s *LedgerServiceImpl) OpenAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	existing, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storageError("get account", err)
	}
	if existing != nil {
		return nil, apperror.ErrAccountExists()
	}

	for attempt := 0; attempt < maxAccountNumberAttempts; attempt++ {
		number, err := s.secrets.AccountNumber()
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("generate account number: %w", err))
		}

		account := domain.NewAccount(userID, number, s.opts.RoutingNumber, time.Now().UTC())
		err = s.accountRepo.Create(ctx, account)
		switch {
		case err == nil:
			s.log.Info().
				Str("user_id", userID.String()).
				Str("account_id", account.ID.String()).
				Msg("account opened")
			return account, nil
		case errors.Is(err, domain.ErrAccountExists):
			return nil, apperror.ErrAccountExists()
		case errors.Is(err, domain.ErrAccountNumberTaken):
			s.log.Debug().Int("attempt", attempt+1).Msg("account number collision, retrying")
		default:
			return nil, storageError("create account", err)
		}
	}

	return nil, apperror.InternalError(fmt.Errorf("no free account number after %d attempts", maxAccountNumberAttempts))
}

func validateTransactionRequest(req ports.ApplyTransactionRequest) error {
	fields := map[string]string{}
	if !req.TransactionType.IsValid() {
		fields["transaction_type"] = "must be one of: deposit, withdrawal, transfer, payment, card_purchase"
	}
	if msg := checkAmount(req.Amount, maxAmount); msg != "" {
		fields["amount"] = msg
	}
	if !domain.ValidCurrencyCode(req.CurrencyCode) {
		fields["currency_code"] = "must be a 3-letter currency code"
	}
	if len(fields) > 0 {
		return apperror.ValidationFields(fields)
	}
	return nil
}

// buildIdempotencyKey scopes a client-supplied key to its owner.
func buildIdempotencyKey(userID uuid.UUID, key string) string {
	return fmt.Sprintf("tx:%s:%s", userID.String(), key)
}

// Upper bounds are the first values that no longer fit the storage column.
var (
	maxAmount         = decimal.New(1, 13) // NUMERIC(15,2)
	maxPurchaseAmount = decimal.New(1, 8)  // NUMERIC(10,2)
)

// checkAmount returns a field message when amount is not a positive cent value below limit.
func checkAmount(amount, limit decimal.Decimal) string {
	switch {
	case !amount.IsPositive():
		return "must be greater than 0"
	case !amount.Equal(amount.Round(2)):
		return "must have at most 2 decimal places"
	case amount.GreaterThanOrEqual(limit):
		return "exceeds the maximum amount"
	}
	return ""
}
