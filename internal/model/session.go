package model

import "time"

type PurchaseState string

const (
	StateIdle            PurchaseState = "IDLE"
	StatePlanSelected    PurchaseState = "PLAN_SELECTED"
	StateCreatingOrder   PurchaseState = "CREATING_ORDER"
	StateAwaitingGateway PurchaseState = "AWAITING_GATEWAY"
	StateVerifying       PurchaseState = "VERIFYING"
	StateSucceeded       PurchaseState = "SUCCEEDED"
	StateFailed          PurchaseState = "FAILED"
)

var allowedTransitions = map[PurchaseState][]PurchaseState{
	StateIdle:            {StatePlanSelected},
	StatePlanSelected:    {StatePlanSelected, StateCreatingOrder},
	StateCreatingOrder:   {StatePlanSelected, StateAwaitingGateway},
	StateAwaitingGateway: {StateVerifying, StateFailed},
	StateVerifying:       {StateSucceeded, StateFailed},
}

func (s PurchaseState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s PurchaseState) String() string {
	return string(s)
}

func CanTransitionTo(from, to PurchaseState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SessionView is the read model of a purchase session returned to the UI.
type SessionView struct {
	ID          string        `json:"id"`
	CourseID    string        `json:"course_id"`
	CourseTitle string        `json:"course_title"`
	Highlights  []string      `json:"highlights"`
	Plan        PlanTier      `json:"plan"`
	Quote       PriceQuote    `json:"quote"`
	Currency    string        `json:"currency"`
	State       PurchaseState `json:"state"`
	OrderID     string        `json:"order_id,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// CheckoutView is everything the page needs to open the gateway widget.
type CheckoutView struct {
	SessionID string          `json:"session_id"`
	ScriptURL string          `json:"script_url"`
	Options   CheckoutOptions `json:"options"`
}
