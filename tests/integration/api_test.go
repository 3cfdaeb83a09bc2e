package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "banking-ledger/internal/adapter/http/handler"
	"banking-ledger/internal/adapter/storage/memory"
	redisStorage "banking-ledger/internal/adapter/storage/redis"
	"banking-ledger/internal/core/domain"
	"banking-ledger/internal/core/ports"
	"banking-ledger/internal/service"
	"banking-ledger/pkg/logger"
	"banking-ledger/pkg/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCardKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// testApp wires the real HTTP layer, middleware, services and Redis stores
// over the in-memory ledger store and miniredis.
type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	tokens   *service.JWTTokenService
	activity *service.ActivityService
	feed     *memory.ActivityFeed
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	store := memory.New()
	transactor := memory.NewTransactor(store)
	feed := memory.NewActivityFeed(store)

	log := logger.New("error", false)
	m := metrics.New(prometheus.NewRegistry())

	encSvc, err := service.NewXChaChaEncryptionService(testCardKey)
	require.NoError(t, err)
	secrets := service.NewRandomSecretGenerator()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, "test-issuer")
	activitySvc := service.NewActivityService(time.Second, m, log, feed)

	ledgerSvc := service.NewLedgerService(
		memory.NewAccountRepo(store),
		memory.NewTransactionRepo(store),
		memory.NewIdempotencyRepo(store),
		redisStorage.NewIdempotencyCache(rdb),
		secrets,
		activitySvc,
		m,
		transactor,
		service.LedgerOptions{TxTimeout: 5 * time.Second, RoutingNumber: "021000021", DefaultCurrency: "USD"},
		log,
	)
	cardSvc := service.NewCardService(
		memory.NewCardRepo(store),
		memory.NewCardPurchaseRepo(store),
		encSvc,
		secrets,
		activitySvc,
		m,
		transactor,
		5*time.Second,
		log,
	)
	loanSvc := service.NewLoanService(memory.NewLoanRepo(store), activitySvc, m, "USD", log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		CardSvc:        cardSvc,
		LoanSvc:        loanSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{store, redisStorage.NewHealthCheck(rdb)},
		MetricsHandler: m.Handler(),
		Logger:         log,
	})

	return &testApp{
		server:   httptest.NewServer(router),
		redis:    mr,
		tokens:   tokenSvc,
		activity: activitySvc,
		feed:     feed,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.activity.Wait()
	a.redis.Close()
}

// newUser returns a user ID and a bearer token for it.
func (a *testApp) newUser(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	token, _, err := a.tokens.Generate(userID)
	require.NoError(t, err)
	return userID, token
}

type envelope struct {
	Data      json.RawMessage   `json:"data"`
	ErrorCode string            `json:"error_code"`
	Details   map[string]string `json:"details"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}, headers map[string]string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

type txnView struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount string `json:"amount"`
}

type accountView struct {
	CurrentBalance   string `json:"current_balance"`
	AvailableBalance string `json:"available_balance"`
	AccountNumber    string `json:"account_number"`
}

func decodeInto(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func (a *testApp) post(t *testing.T, token, txType, amount string) txnView {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/v1/bank/transactions", token,
		map[string]string{"transaction_type": txType, "amount": amount, "currency_code": "USD"}, nil)
	require.Equal(t, http.StatusCreated, code)
	var txn txnView
	decodeInto(t, env.Data, &txn)
	return txn
}

func (a *testApp) balance(t *testing.T, token string) accountView {
	t.Helper()
	code, env := a.do(t, http.MethodGet, "/api/v1/bank/account", token, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var acct accountView
	decodeInto(t, env.Data, &acct)
	return acct
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_Unauthorized(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	code, env := app.do(t, http.MethodGet, "/api/v1/bank/account", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_003", env.ErrorCode)

	code, _ = app.do(t, http.MethodGet, "/api/v1/bank/account", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestIntegration_LedgerScenario(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	userID, token := app.newUser(t)

	// No account yet
	code, env := app.do(t, http.MethodGet, "/api/v1/bank/account", token, nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "LED_001", env.ErrorCode)

	code, env = app.do(t, http.MethodPost, "/api/v1/bank/account", token, nil, nil)
	require.Equal(t, http.StatusCreated, code)
	var opened accountView
	decodeInto(t, env.Data, &opened)
	assert.Regexp(t, `^PW\d{8}$`, opened.AccountNumber)
	assert.Equal(t, "0.00", opened.CurrentBalance)

	code, env = app.do(t, http.MethodPost, "/api/v1/bank/account", token, nil, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "LED_002", env.ErrorCode)

	deposit := app.post(t, token, "deposit", "100")
	assert.Equal(t, "completed", deposit.Status)

	overdraw := app.post(t, token, "withdrawal", "150")
	assert.Equal(t, "failed", overdraw.Status)
	assert.Equal(t, "100.00", app.balance(t, token).CurrentBalance)

	withdrawal := app.post(t, token, "withdrawal", "40")
	assert.Equal(t, "completed", withdrawal.Status)

	acct := app.balance(t, token)
	assert.Equal(t, "60.00", acct.CurrentBalance)
	assert.Equal(t, "60.00", acct.AvailableBalance)

	// History is newest first and keeps the failed attempt
	code, env = app.do(t, http.MethodGet, "/api/v1/bank/transactions", token, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var history []txnView
	decodeInto(t, env.Data, &history)
	require.Len(t, history, 3)
	assert.Equal(t, withdrawal.ID, history[0].ID)
	assert.Equal(t, "failed", history[1].Status)
	assert.Equal(t, deposit.ID, history[2].ID)

	// Activity is delivered asynchronously
	app.activity.Wait()
	statuses := map[string]int{}
	for _, e := range app.feed.ListByUser(userID) {
		if e.ActionType == domain.ActivityTransaction {
			statuses[e.Details["status"]]++
		}
	}
	assert.Equal(t, map[string]int{"completed": 2, "failed": 1}, statuses)
}

func TestIntegration_TransactionWithoutAccount(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, token := app.newUser(t)

	code, env := app.do(t, http.MethodPost, "/api/v1/bank/transactions", token,
		map[string]string{"transaction_type": "deposit", "amount": "10", "currency_code": "USD"}, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "LED_001", env.ErrorCode)
}

func TestIntegration_ValidationDetails(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, token := app.newUser(t)

	code, env := app.do(t, http.MethodPost, "/api/v1/bank/transactions", token,
		map[string]string{"transaction_type": "deposit", "amount": "-5", "currency_code": "usd"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VAL_001", env.ErrorCode)
	assert.Contains(t, env.Details, "amount")
	assert.Contains(t, env.Details, "currency_code")
}

func TestIntegration_IdempotentReplay(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, token := app.newUser(t)

	code, _ := app.do(t, http.MethodPost, "/api/v1/bank/account", token, nil, nil)
	require.Equal(t, http.StatusCreated, code)

	body := map[string]string{"transaction_type": "deposit", "amount": "25.50", "currency_code": "USD"}
	headers := map[string]string{"Idempotency-Key": "salary-2026-10"}

	code, env := app.do(t, http.MethodPost, "/api/v1/bank/transactions", token, body, headers)
	require.Equal(t, http.StatusCreated, code)
	var first txnView
	decodeInto(t, env.Data, &first)

	code, env = app.do(t, http.MethodPost, "/api/v1/bank/transactions", token, body, headers)
	require.Equal(t, http.StatusCreated, code)
	var second txnView
	decodeInto(t, env.Data, &second)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "25.50", app.balance(t, token).CurrentBalance)
}

func TestIntegration_CardLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, token := app.newUser(t)

	code, env := app.do(t, http.MethodPost, "/api/v1/cards", token, map[string]string{"card_type": "physical"}, nil)
	require.Equal(t, http.StatusCreated, code)
	var card struct {
		ID             string `json:"id"`
		CardNumber     string `json:"card_number"`
		PurchaseStatus string `json:"purchase_status"`
		IsOverdue      bool   `json:"is_overdue"`
	}
	decodeInto(t, env.Data, &card)
	assert.Regexp(t, `^XXXX-XXXX-XXXX-\d{4}$`, card.CardNumber)
	assert.Equal(t, "pending_payment", card.PurchaseStatus)
	assert.False(t, card.IsOverdue)

	code, _ = app.do(t, http.MethodPost, "/api/v1/cards/"+card.ID+"/pay", token, nil, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = app.do(t, http.MethodPost, "/api/v1/cards/"+card.ID+"/pay", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "CRD_002", env.ErrorCode)

	// Another user cannot see or pay the card
	_, otherToken := app.newUser(t)
	code, env = app.do(t, http.MethodPost, "/api/v1/cards/"+card.ID+"/pay", otherToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "CRD_001", env.ErrorCode)

	code, _ = app.do(t, http.MethodPost, "/api/v1/cards/"+card.ID+"/purchases", token,
		map[string]string{"amount": "9.99", "merchant": "Coffee Bar", "location": "Lisbon"}, nil)
	assert.Equal(t, http.StatusCreated, code)

	code, env = app.do(t, http.MethodGet, "/api/v1/cards/"+card.ID+"/purchases", token, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var purchases []map[string]interface{}
	decodeInto(t, env.Data, &purchases)
	require.Len(t, purchases, 1)
	assert.Equal(t, "9.99", purchases[0]["amount"])

	code, env = app.do(t, http.MethodGet, "/api/v1/cards", token, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var cards []map[string]interface{}
	decodeInto(t, env.Data, &cards)
	require.Len(t, cards, 1)
	assert.Equal(t, "paid", cards[0]["purchase_status"])
}

func TestIntegration_LoanApplication(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, token := app.newUser(t)

	code, env := app.do(t, http.MethodPost, "/api/v1/loans", token, map[string]interface{}{"amount": "1200"}, nil)
	require.Equal(t, http.StatusCreated, code)
	var loan map[string]interface{}
	decodeInto(t, env.Data, &loan)
	assert.Equal(t, float64(12), loan["duration_months"])
	assert.Equal(t, "105.00", loan["monthly_payment"])
	assert.Equal(t, "1260.00", loan["total_repayment"])
	assert.Equal(t, "USD", loan["currency_code"])

	code, env = app.do(t, http.MethodGet, "/api/v1/loans", token, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var loans []map[string]interface{}
	decodeInto(t, env.Data, &loans)
	assert.Len(t, loans, 1)
}

func TestIntegration_Metrics(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, token := app.newUser(t)

	code, _ := app.do(t, http.MethodPost, "/api/v1/bank/account", token, nil, nil)
	require.Equal(t, http.StatusCreated, code)
	app.post(t, token, "deposit", "1")

	resp, err := http.Get(app.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "transactions_total")
}
