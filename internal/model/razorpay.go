package model

// PaymentAttempt is what the checkout widget hands to its success handler.
type PaymentAttempt struct {
	GatewayOrderID   string `json:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	GatewaySignature string `json:"razorpay_signature" validate:"required"`
}

type CheckoutPrefill struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type CheckoutTheme struct {
	Color string `json:"color,omitempty"`
}

// CheckoutOptions is the configuration object passed to the gateway's checkout constructor.
// The handler callback is wired by the page, not serialized here.
type CheckoutOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Prefill     CheckoutPrefill   `json:"prefill"`
	Notes       map[string]string `json:"notes"`
	Theme       CheckoutTheme     `json:"theme"`
}

type PaymentFailureMetadata struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

// PaymentFailureDetail mirrors the error object of the gateway's "payment.failed" event.
type PaymentFailureDetail struct {
	Code        string                 `json:"code"`
	Description string                 `json:"description"`
	Source      string                 `json:"source"`
	Step        string                 `json:"step"`
	Reason      string                 `json:"reason"`
	Metadata    PaymentFailureMetadata `json:"metadata"`
}

type GatewayEventKind int

const (
	GatewayPaymentSucceeded GatewayEventKind = iota + 1
	GatewayPaymentFailed
	GatewayDismissed
)

func (k GatewayEventKind) String() string {
	switch k {
	case GatewayPaymentSucceeded:
		return "payment.succeeded"
	case GatewayPaymentFailed:
		return "payment.failed"
	case GatewayDismissed:
		return "modal.dismissed"
	default:
		return "unknown"
	}
}

// GatewayEvent is the single terminal outcome of an open checkout widget.
type GatewayEvent struct {
	Kind    GatewayEventKind
	Attempt *PaymentAttempt
	Failure *PaymentFailureDetail
}
