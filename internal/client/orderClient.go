package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"course-purchase/internal/config"
	"course-purchase/internal/model"

	"github.com/sony/gobreaker/v2"
)

const (
	createOrderPath   = "/payment/capturepayment"
	verifyPaymentPath = "/payment/verify-payment"
)

type OrderClient interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error)
	Verify(ctx context.Context, attempt model.PaymentAttempt, meta VerifyMeta) (*model.VerificationResult, error)
}

// CreateOrderRequest deliberately has no amount: the backend prices the order.
type CreateOrderRequest struct {
	CourseID    string `json:"course_id"`
	UserID      string `json:"user_id"`
	PlanType    string `json:"planType"`
	CountryName string `json:"countryName"`
	AuthToken   string `json:"-"`
}

type VerifyMeta struct {
	CourseID    string
	UserID      string
	PlanType    string
	ModuleCount int
	Amount      int64 // minor units, as issued on the order
	AuthToken   string
}

type orderPayload struct {
	OrderID     string `json:"orderId"`
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ModuleCount int    `json:"moduleCount"`
}

type createOrderResponse struct {
	orderPayload
	Order *orderPayload `json:"order"`
}

type verifyPaymentBody struct {
	RazorpayOrderID   string  `json:"razorpay_order_id"`
	RazorpayPaymentID string  `json:"razorpay_payment_id"`
	RazorpaySignature string  `json:"razorpay_signature"`
	CourseID          string  `json:"course_id"`
	UserID            string  `json:"user_id"`
	PlanType          string  `json:"planType"`
	ModuleCount       int     `json:"moduleCount"`
	Amount            float64 `json:"amount"`
}

type verifyPaymentResponse struct {
	Success bool `json:"success"`
	Valid   bool `json:"valid"`
}

var errNotVerified = errors.New("backend did not confirm the payment")

type orderClientImpl struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func NewOrderClient(backendCfg *config.Backend) OrderClient {
	return &orderClientImpl{
		httpClient: newHTTPClient(backendCfg.Timeout),
		baseURL:    strings.TrimRight(backendCfg.BaseURL, "/"),
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "payment-backend",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// a rejected request is an answer, not an outage
			IsSuccessful: func(err error) bool {
				return err == nil || !retryable(err)
			},
		}),
	}
}

func (c *orderClientImpl) CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	body, err := c.post(ctx, createOrderPath, req, req.AuthToken)
	if err != nil {
		return nil, &model.OrderCreationError{Reason: "request failed", Err: err}
	}

	var resp createOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &model.OrderCreationError{Reason: "decode response", Err: err}
	}

	return normalizeOrder(&resp)
}

func (c *orderClientImpl) Verify(ctx context.Context, attempt model.PaymentAttempt, meta VerifyMeta) (*model.VerificationResult, error) {
	amount, _ := model.Order{Amount: meta.Amount}.MajorAmount().Float64()

	payload := verifyPaymentBody{
		RazorpayOrderID:   attempt.GatewayOrderID,
		RazorpayPaymentID: attempt.GatewayPaymentID,
		RazorpaySignature: attempt.GatewaySignature,
		CourseID:          meta.CourseID,
		UserID:            meta.UserID,
		PlanType:          meta.PlanType,
		ModuleCount:       meta.ModuleCount,
		Amount:            amount,
	}

	body, err := c.post(ctx, verifyPaymentPath, payload, meta.AuthToken)
	if err != nil {
		return nil, &model.VerificationError{Err: err}
	}

	var resp verifyPaymentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &model.VerificationError{Err: fmt.Errorf("decode response: %w", err)}
	}

	result := normalizeVerification(&resp)
	if !result.Verified {
		return nil, &model.VerificationError{Err: errNotVerified}
	}
	return result, nil
}

// normalizeOrder accepts the order at the top level or under "order", keyed by
// either "orderId" or "id".
func normalizeOrder(resp *createOrderResponse) (*model.Order, error) {
	candidates := make([]orderPayload, 0, 2)
	if resp.Order != nil {
		candidates = append(candidates, *resp.Order)
	}
	candidates = append(candidates, resp.orderPayload)

	for _, p := range candidates {
		id := p.OrderID
		if id == "" {
			id = p.ID
		}
		if id == "" {
			continue
		}
		return &model.Order{
			OrderID:     id,
			Amount:      p.Amount,
			Currency:    p.Currency,
			ModuleCount: p.ModuleCount,
		}, nil
	}

	return nil, &model.OrderCreationError{Reason: "missing order id"}
}

// normalizeVerification treats either "success" or "valid" as the confirmation flag.
func normalizeVerification(resp *verifyPaymentResponse) *model.VerificationResult {
	return &model.VerificationResult{Verified: resp.Success || resp.Valid}
}

func (c *orderClientImpl) post(ctx context.Context, path string, payload any, token string) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal req payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("http new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http client do: %w", err)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &statusError{StatusCode: resp.StatusCode, Body: string(b)}
		}
		return b, nil
	})
}
