package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"course-purchase/internal/client"
	"course-purchase/internal/config"
	authmw "course-purchase/internal/middleware"
	"course-purchase/internal/model"
	"course-purchase/internal/publisher"
	"course-purchase/internal/repository"
	"course-purchase/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeBackend struct {
	mu           sync.Mutex
	verifyReply  string
	verifyBodies []map[string]any
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/v1/payment/capturepayment":
		w.Write([]byte(`{"success":true,"order":{"id":"order_abc","amount":50000,"currency":"INR","moduleCount":3}}`))
	case "/api/v1/payment/verify-payment":
		b.mu.Lock()
		defer b.mu.Unlock()
		b.verifyBodies = append(b.verifyBodies, body)
		w.Write([]byte(b.verifyReply))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBackend) verified() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.verifyBodies...)
}

type testServer struct {
	srv     *Server
	backend *fakeBackend
}

func newTestServer(t *testing.T, verifyReply string) *testServer {
	t.Helper()

	backend := &fakeBackend{verifyReply: verifyReply}
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("window.Razorpay = function () {};"))
	}))
	t.Cleanup(cdn.Close)

	cfg := &config.Config{
		Auth:    config.Auth{JWTSecret: testSecret},
		Backend: config.Backend{BaseURL: backendSrv.URL + "/api/v1", Timeout: 5 * time.Second},
		Razorpay: config.Razorpay{
			Key:              "rzp_test_key",
			ScriptURL:        cdn.URL + "/v1/checkout.js",
			ScriptLoadTries:  2,
			ScriptLoadDelay:  time.Millisecond,
			ScriptLoadMaxGap: 5 * time.Millisecond,
			BrandName:        "Course Academy",
		},
		Purchase: config.Purchase{SessionTTL: time.Hour, VerifyTimeout: 5 * time.Second, AwaitTimeout: 5 * time.Second},
		Database: config.Database{Driver: "sqlite", URL: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := client.InitDBClient(&cfg.Database)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	repo := repository.NewCourseRepository(db)
	require.NoError(t, repo.Seed(context.Background()))

	page := client.NewCheckoutPage(&cfg.Razorpay, log)
	catalog := service.NewCatalogService(repo, nil, log)
	purchases := service.NewPurchaseService(
		catalog,
		service.NewPricingCalculator(decimal.RequireFromString("0.5")),
		client.NewGatewayScriptLoader(page, cfg.Razorpay.ScriptURL, 5*time.Second),
		client.NewOrderClient(&cfg.Backend),
		client.NewPaymentGatewayAdapter(&cfg.Razorpay),
		publisher.NewLogPublisher(log),
		service.PurchaseSettings{SessionTTL: cfg.Purchase.SessionTTL, VerifyTimeout: cfg.Purchase.VerifyTimeout},
		log,
	)

	return &testServer{
		srv:     NewServer(purchases, catalog, page, cfg, log),
		backend: backend,
	}
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, authmw.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name:  "Asha",
		Email: "asha@example.test",
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) openAwaiting(t *testing.T, token string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/purchases", "", map[string]string{"course_id": "go-backend"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[model.SessionView](t, rec).ID

	rec = s.do(t, http.MethodPut, "/api/purchases/"+id+"/plan", "", map[string]string{"plan": "half"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/purchases/"+id+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return id
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, `{"success":true}`)

	rec := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCourses(t *testing.T) {
	s := newTestServer(t, `{"success":true}`)

	rec := s.do(t, http.MethodGet, "/api/courses", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 3)

	rec = s.do(t, http.MethodGet, "/api/courses/data-structures", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	course := decode[map[string]any](t, rec)
	assert.Equal(t, "USD", course["currency"])
	assert.Equal(t, "United States", course["country"])

	rec = s.do(t, http.MethodGet, "/api/courses/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Course not found."}`, rec.Body.String())
}

func TestPurchaseFlow_Succeeds(t *testing.T) {
	s := newTestServer(t, `{"success":true}`)
	token := signToken(t, "user-1")

	rec := s.do(t, http.MethodPost, "/api/purchases", "", map[string]string{"course_id": "go-backend"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[model.SessionView](t, rec)
	assert.Equal(t, model.StatePlanSelected, session.State)

	rec = s.do(t, http.MethodPut, "/api/purchases/"+session.ID+"/plan", "", map[string]string{"plan": "half"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.PriceQuote{Base: 1000, Discount: 500, Total: 500}, decode[model.SessionView](t, rec).Quote)

	rec = s.do(t, http.MethodPost, "/api/purchases/"+session.ID+"/confirm", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Please log in to purchase this course."}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/purchases/"+session.ID+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	checkout := decode[model.CheckoutView](t, rec)
	assert.Equal(t, int64(50000), checkout.Options.Amount)
	assert.Equal(t, "INR", checkout.Options.Currency)
	assert.Equal(t, "order_abc", checkout.Options.OrderID)
	assert.Equal(t, "Asha", checkout.Options.Prefill.Name)

	rec = s.do(t, http.MethodGet, "/api/purchases/"+session.ID+"/checkout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := rec.Body.String()
	assert.Contains(t, page, `id="razorpay-checkout-js"`)
	assert.Contains(t, page, "order_abc")
	assert.Equal(t, 1, strings.Count(page, `id="razorpay-checkout-js"`))
	assert.Contains(t, page, "if (settled)", "only the first widget outcome is relayed")

	rec = s.do(t, http.MethodPost, "/api/purchases/"+session.ID+"/gateway/success", "", map[string]string{
		"razorpay_order_id":   "order_abc",
		"razorpay_payment_id": "pay_xyz",
		"razorpay_signature":  "sig_123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	final := decode[model.SessionView](t, rec)
	assert.Equal(t, model.StateSucceeded, final.State)
	assert.Equal(t, "order_abc", final.OrderID)

	verified := s.backend.verified()
	require.Len(t, verified, 1)
	assert.Equal(t, float64(500), verified[0]["amount"])
	assert.Equal(t, "pay_xyz", verified[0]["razorpay_payment_id"])
	assert.Equal(t, "user-1", verified[0]["user_id"])
	assert.Equal(t, "half", verified[0]["planType"])
}

func TestPurchaseFlow_VerificationRejected(t *testing.T) {
	s := newTestServer(t, `{"valid":false}`)
	id := s.openAwaiting(t, signToken(t, "user-1"))

	rec := s.do(t, http.MethodPost, "/api/purchases/"+id+"/gateway/success", "", map[string]string{
		"razorpay_order_id":   "order_abc",
		"razorpay_payment_id": "pay_xyz",
		"razorpay_signature":  "sig_123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	final := decode[model.SessionView](t, rec)
	assert.Equal(t, model.StateFailed, final.State)
	assert.Equal(t, "Payment verification failed.", final.Error)
}

func TestPurchaseFlow_GatewayFailureAndDismiss(t *testing.T) {
	s := newTestServer(t, `{"success":true}`)
	token := signToken(t, "user-1")

	id := s.openAwaiting(t, token)
	rec := s.do(t, http.MethodPost, "/api/purchases/"+id+"/gateway/failure", "", map[string]any{
		"error": map[string]any{"code": "BAD_REQUEST_ERROR", "description": "Card declined", "reason": "payment_failed"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Payment failed: Card declined", decode[model.SessionView](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/purchases/"+id+"/gateway/dismiss", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// the order id is reused by the fake backend, so a new session needs the previous widget gone
	id = s.openAwaiting(t, token)
	rec = s.do(t, http.MethodPost, "/api/purchases/"+id+"/gateway/dismiss", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	final := decode[model.SessionView](t, rec)
	assert.Equal(t, model.StateFailed, final.State)
	assert.Equal(t, "Payment cancelled.", final.Error)
}

func TestPurchase_RequestErrors(t *testing.T) {
	s := newTestServer(t, `{"success":true}`)

	rec := s.do(t, http.MethodPost, "/api/purchases", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"course_id is required"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/purchases", "", map[string]string{"course_id": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/purchases/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/purchases", "", map[string]string{"course_id": "go-backend"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[model.SessionView](t, rec).ID

	rec = s.do(t, http.MethodPut, "/api/purchases/"+id+"/plan", "", map[string]string{"plan": "yearly"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/purchases/"+id+"/confirm", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/purchases/"+id+"/checkout", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/purchases/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/purchases/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPurchase_ConfirmOnOpenCheckoutIsConflict(t *testing.T) {
	s := newTestServer(t, `{"success":true}`)
	id := s.openAwaiting(t, signToken(t, "user-1"))

	rec := s.do(t, http.MethodPost, "/api/purchases/"+id+"/confirm", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"This purchase can no longer be changed."}`, rec.Body.String())
}
