package dto

import "course-purchase/internal/model"

type OpenPurchaseRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

type SelectPlanRequest struct {
	Plan string `json:"plan" validate:"required"`
}

type PaymentSuccessRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

func (r *PaymentSuccessRequest) Attempt() model.PaymentAttempt {
	return model.PaymentAttempt{
		GatewayOrderID:   r.RazorpayOrderID,
		GatewayPaymentID: r.RazorpayPaymentID,
		GatewaySignature: r.RazorpaySignature,
	}
}

// PaymentFailureRequest is the "payment.failed" payload the page forwards as is.
type PaymentFailureRequest struct {
	Error model.PaymentFailureDetail `json:"error"`
}

type CourseResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Highlights   []string `json:"highlights"`
	MonthlyPrice int64    `json:"monthly_price"`
	Currency     string   `json:"currency"`
	Country      string   `json:"country"`
}

func NewCourseResponse(course *model.Course) *CourseResponse {
	return &CourseResponse{
		ID:           course.ID,
		Title:        course.Title,
		Highlights:   course.Highlights,
		MonthlyPrice: course.MonthlyPrice,
		Currency:     course.Currency,
		Country:      model.CountryForCurrency(course.Currency),
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
