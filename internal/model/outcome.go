package model

import "time"

// PurchaseOutcome is published once per session when it reaches a terminal state.
type PurchaseOutcome struct {
	SessionID  string        `json:"session_id"`
	CourseID   string        `json:"course_id"`
	UserID     string        `json:"user_id"`
	PlanType   string        `json:"plan_type"`
	OrderID    string        `json:"order_id,omitempty"`
	Amount     int64         `json:"amount,omitempty"`
	Currency   string        `json:"currency,omitempty"`
	State      PurchaseState `json:"state"`
	Error      string        `json:"error,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
