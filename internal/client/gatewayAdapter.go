package client

import (
	"errors"
	"fmt"
	"sync"

	"course-purchase/internal/config"
	"course-purchase/internal/model"
)

// PaymentGatewayAdapter turns the gateway's callback-shaped checkout into one event per
// order. There is no guaranteed terminal callback: a widget closed without a result
// only ends when Dismiss is called.
type PaymentGatewayAdapter interface {
	Open(order *model.Order, course *model.Course, tier model.PlanTier, user *model.User) (<-chan model.GatewayEvent, error)
	Options(orderID string) (model.CheckoutOptions, bool)
	Succeed(attempt model.PaymentAttempt) error
	Fail(orderID string, detail model.PaymentFailureDetail) error
	Dismiss(orderID string) error
}

type checkoutWidget struct {
	options model.CheckoutOptions
	events  chan model.GatewayEvent
}

type gatewayAdapterImpl struct {
	key        string
	brandName  string
	themeColor string

	mu      sync.Mutex
	widgets map[string]*checkoutWidget
}

func NewPaymentGatewayAdapter(razorpayCfg *config.Razorpay) PaymentGatewayAdapter {
	return &gatewayAdapterImpl{
		key:        razorpayCfg.Key,
		brandName:  razorpayCfg.BrandName,
		themeColor: razorpayCfg.ThemeColor,
		widgets:    make(map[string]*checkoutWidget),
	}
}

func (a *gatewayAdapterImpl) Open(order *model.Order, course *model.Course, tier model.PlanTier, user *model.User) (<-chan model.GatewayEvent, error) {
	if order == nil || order.OrderID == "" {
		return nil, errors.New("open checkout: order has no id")
	}
	if course == nil || user == nil {
		return nil, errors.New("open checkout: course and user are required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.widgets[order.OrderID]; exists {
		return nil, fmt.Errorf("open checkout: widget already open for order %s", order.OrderID)
	}

	w := &checkoutWidget{
		options: a.buildOptions(order, course, tier, user),
		events:  make(chan model.GatewayEvent, 1),
	}
	a.widgets[order.OrderID] = w

	return w.events, nil
}

func (a *gatewayAdapterImpl) Options(orderID string) (model.CheckoutOptions, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, ok := a.widgets[orderID]
	if !ok {
		return model.CheckoutOptions{}, false
	}
	return w.options, true
}

func (a *gatewayAdapterImpl) Succeed(attempt model.PaymentAttempt) error {
	return a.resolve(attempt.GatewayOrderID, model.GatewayEvent{
		Kind:    model.GatewayPaymentSucceeded,
		Attempt: &attempt,
	})
}

func (a *gatewayAdapterImpl) Fail(orderID string, detail model.PaymentFailureDetail) error {
	return a.resolve(orderID, model.GatewayEvent{
		Kind:    model.GatewayPaymentFailed,
		Failure: &detail,
	})
}

func (a *gatewayAdapterImpl) Dismiss(orderID string) error {
	return a.resolve(orderID, model.GatewayEvent{Kind: model.GatewayDismissed})
}

// resolve delivers the widget's only event and forgets the widget.
func (a *gatewayAdapterImpl) resolve(orderID string, event model.GatewayEvent) error {
	a.mu.Lock()
	w, ok := a.widgets[orderID]
	if ok {
		delete(a.widgets, orderID)
	}
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w %q", model.ErrUnknownCheckout, orderID)
	}

	w.events <- event
	close(w.events)
	return nil
}

func (a *gatewayAdapterImpl) buildOptions(order *model.Order, course *model.Course, tier model.PlanTier, user *model.User) model.CheckoutOptions {
	return model.CheckoutOptions{
		Key:         a.key,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        a.brandName,
		Description: fmt.Sprintf("%s - %s", course.Title, tier.Label()),
		OrderID:     order.OrderID,
		Prefill: model.CheckoutPrefill{
			Name:  user.Name,
			Email: user.Email,
		},
		Notes: map[string]string{
			"courseId": course.ID,
			"userId":   user.ID,
			"planType": tier.ServerKey(),
		},
		Theme: model.CheckoutTheme{Color: a.themeColor},
	}
}
