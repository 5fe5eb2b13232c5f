package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"course-purchase/internal/client"
	"course-purchase/internal/metrics"
	"course-purchase/internal/model"

	"github.com/google/uuid"
)

type PurchaseService interface {
	Open(ctx context.Context, courseID string) (*model.SessionView, error)
	SelectPlan(ctx context.Context, sessionID string, tier model.PlanTier) (*model.SessionView, error)
	Confirm(ctx context.Context, sessionID string, user *model.User) (*model.CheckoutView, error)
	Checkout(ctx context.Context, sessionID string) (*model.CheckoutView, error)
	Get(ctx context.Context, sessionID string) (*model.SessionView, error)
	Await(ctx context.Context, sessionID string) (*model.SessionView, error)
	Close(ctx context.Context, sessionID string) error

	HandleGatewaySuccess(ctx context.Context, sessionID string, attempt model.PaymentAttempt) (*model.SessionView, error)
	HandleGatewayFailure(ctx context.Context, sessionID string, detail model.PaymentFailureDetail) (*model.SessionView, error)
	HandleGatewayDismiss(ctx context.Context, sessionID string) (*model.SessionView, error)
}

type EventPublisher interface {
	PublishOutcome(ctx context.Context, outcome model.PurchaseOutcome) error
}

type PurchaseSettings struct {
	// SessionTTL bounds how long a session is kept; stalled checkouts are dismissed after it.
	SessionTTL    time.Duration
	VerifyTimeout time.Duration
}

type purchaseSession struct {
	mu sync.Mutex

	id        string
	course    *model.Course
	tier      model.PlanTier
	quote     model.PriceQuote
	state     model.PurchaseState
	order     *model.Order
	user      *model.User
	err       error
	closed    bool
	done      chan struct{}
	createdAt time.Time
	updatedAt time.Time
}

type purchaseServiceImpl struct {
	courses   CourseSource
	pricing   *PricingCalculator
	loader    client.GatewayScriptLoader
	orders    client.OrderClient
	gateway   client.PaymentGatewayAdapter
	publisher EventPublisher
	settings  PurchaseSettings
	log       *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*purchaseSession
}

func NewPurchaseService(
	courses CourseSource,
	pricing *PricingCalculator,
	loader client.GatewayScriptLoader,
	orders client.OrderClient,
	gateway client.PaymentGatewayAdapter,
	publisher EventPublisher,
	settings PurchaseSettings,
	log *slog.Logger,
) PurchaseService {
	return &purchaseServiceImpl{
		courses:   courses,
		pricing:   pricing,
		loader:    loader,
		orders:    orders,
		gateway:   gateway,
		publisher: publisher,
		settings:  settings,
		log:       log,
		now:       time.Now,
		sessions:  make(map[string]*purchaseSession),
	}
}

func (s *purchaseServiceImpl) Open(ctx context.Context, courseID string) (*model.SessionView, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("find course: %w", err)
	}

	s.pruneExpired()

	now := s.now()
	sess := &purchaseSession{
		id:        uuid.NewString(),
		course:    course,
		state:     model.StateIdle,
		done:      make(chan struct{}),
		createdAt: now,
		updatedAt: now,
	}

	sess.tier = model.PlanFull
	sess.quote = s.pricing.Quote(course.MonthlyPrice, sess.tier)
	if err := s.moveTo(sess, model.StatePlanSelected); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	metrics.SessionsOpened.Inc()
	s.log.Info("purchase session opened",
		slog.String("session_id", sess.id),
		slog.String("course_id", course.ID))

	return sess.view(), nil
}

func (s *purchaseServiceImpl) SelectPlan(ctx context.Context, sessionID string, tier model.PlanTier) (*model.SessionView, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("select plan: unknown plan tier %q", tier)
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// the plan is frozen once an order exists
	if sess.state != model.StatePlanSelected || sess.order != nil {
		return nil, fmt.Errorf("%w: cannot change plan in state %s", model.ErrIllegalTransition, sess.state)
	}

	sess.tier = tier
	sess.quote = s.pricing.Quote(sess.course.MonthlyPrice, tier)
	sess.err = nil
	if err := s.moveTo(sess, model.StatePlanSelected); err != nil {
		return nil, err
	}

	return sess.view(), nil
}

func (s *purchaseServiceImpl) Confirm(ctx context.Context, sessionID string, user *model.User) (*model.CheckoutView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if !model.CanTransitionTo(sess.state, model.StateCreatingOrder) {
		state := sess.state
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot confirm in state %s", model.ErrIllegalTransition, state)
	}
	if user == nil || user.ID == "" {
		authErr := &model.AuthRequiredError{}
		sess.err = authErr
		sess.mu.Unlock()
		return nil, authErr
	}

	if err := s.moveTo(sess, model.StateCreatingOrder); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	sess.user = user
	sess.err = nil
	course, tier := sess.course, sess.tier
	sess.mu.Unlock()

	order, err := s.createOrder(ctx, course, tier, user)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		if order != nil {
			s.log.Info("discarding order of closed session",
				slog.String("session_id", sess.id),
				slog.String("order_id", order.OrderID))
		}
		return nil, model.ErrSessionNotFound
	}

	if err != nil {
		return nil, s.backToPlanSelection(sess, err)
	}

	events, err := s.gateway.Open(order, course, tier, user)
	if err != nil {
		return nil, s.backToPlanSelection(sess, fmt.Errorf("open checkout: %w", err))
	}

	sess.order = order
	if err := s.moveTo(sess, model.StateAwaitingGateway); err != nil {
		return nil, err
	}

	go s.awaitGateway(sess, events)

	s.log.Info("checkout opened",
		slog.String("session_id", sess.id),
		slog.String("order_id", order.OrderID),
		slog.Int64("amount", order.Amount),
		slog.String("currency", order.Currency))

	return s.checkoutView(sess)
}

func (s *purchaseServiceImpl) Checkout(ctx context.Context, sessionID string) (*model.CheckoutView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != model.StateAwaitingGateway {
		return nil, fmt.Errorf("%w: no open checkout in state %s", model.ErrIllegalTransition, sess.state)
	}
	return s.checkoutView(sess)
}

func (s *purchaseServiceImpl) Get(ctx context.Context, sessionID string) (*model.SessionView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

func (s *purchaseServiceImpl) Await(ctx context.Context, sessionID string) (*model.SessionView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.await(ctx, sess)
}

// Close tears the session down. An open widget can't be closed from here, so it is
// treated as dismissed and the session fails; an in-flight order is simply never used.
func (s *purchaseServiceImpl) Close(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	sess.mu.Lock()
	sess.closed = true
	state, order := sess.state, sess.order
	sess.mu.Unlock()

	if state == model.StateAwaitingGateway && order != nil {
		if err := s.gateway.Dismiss(order.OrderID); err != nil && !errors.Is(err, model.ErrUnknownCheckout) {
			return fmt.Errorf("dismiss checkout: %w", err)
		}
	}

	s.log.Info("purchase session closed",
		slog.String("session_id", sessionID),
		slog.String("state", state.String()))
	return nil
}

func (s *purchaseServiceImpl) HandleGatewaySuccess(ctx context.Context, sessionID string, attempt model.PaymentAttempt) (*model.SessionView, error) {
	sess, order, err := s.awaitingSession(sessionID)
	if err != nil {
		return nil, err
	}
	if attempt.GatewayOrderID != order.OrderID {
		return nil, fmt.Errorf("%w %q for session %s", model.ErrUnknownCheckout, attempt.GatewayOrderID, sessionID)
	}

	if err := s.gateway.Succeed(attempt); err != nil {
		return nil, err
	}
	return s.await(ctx, sess)
}

func (s *purchaseServiceImpl) HandleGatewayFailure(ctx context.Context, sessionID string, detail model.PaymentFailureDetail) (*model.SessionView, error) {
	sess, order, err := s.awaitingSession(sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.Fail(order.OrderID, detail); err != nil {
		return nil, err
	}
	return s.await(ctx, sess)
}

func (s *purchaseServiceImpl) HandleGatewayDismiss(ctx context.Context, sessionID string) (*model.SessionView, error) {
	sess, order, err := s.awaitingSession(sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.Dismiss(order.OrderID); err != nil {
		return nil, err
	}
	return s.await(ctx, sess)
}

// createOrder makes sure the widget can be shown before asking the backend for an order.
func (s *purchaseServiceImpl) createOrder(ctx context.Context, course *model.Course, tier model.PlanTier, user *model.User) (*model.Order, error) {
	start := time.Now()
	if err := s.loader.EnsureLoaded(ctx); err != nil {
		metrics.OrderFailures.WithLabelValues("script").Inc()
		return nil, err
	}
	metrics.StepDuration.WithLabelValues("script").Observe(time.Since(start).Seconds())

	start = time.Now()
	order, err := s.orders.CreateOrder(ctx, client.CreateOrderRequest{
		CourseID:    course.ID,
		UserID:      user.ID,
		PlanType:    tier.ServerKey(),
		CountryName: model.CountryForCurrency(course.Currency),
		AuthToken:   user.Token,
	})
	metrics.StepDuration.WithLabelValues("create_order").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OrderFailures.WithLabelValues("order").Inc()
		return nil, err
	}
	return order, nil
}

func (s *purchaseServiceImpl) awaitGateway(sess *purchaseSession, events <-chan model.GatewayEvent) {
	event, ok := <-events
	if !ok {
		return
	}

	s.log.Info("gateway event",
		slog.String("session_id", sess.id),
		slog.String("event", event.Kind.String()))

	switch event.Kind {
	case model.GatewayPaymentSucceeded:
		s.verify(sess, *event.Attempt)
	case model.GatewayPaymentFailed:
		s.finish(sess, model.StateFailed, &model.GatewayFailure{Detail: *event.Failure})
	case model.GatewayDismissed:
		s.finish(sess, model.StateFailed, model.ErrPaymentCancelled)
	}
}

// verify runs detached from any request: a disconnecting browser must not leave a
// paid session half-verified.
func (s *purchaseServiceImpl) verify(sess *purchaseSession, attempt model.PaymentAttempt) {
	sess.mu.Lock()
	if err := s.moveTo(sess, model.StateVerifying); err != nil {
		sess.mu.Unlock()
		s.log.Error("cannot verify payment", slog.String("session_id", sess.id), slog.Any("error", err))
		return
	}
	meta := client.VerifyMeta{
		CourseID:    sess.course.ID,
		UserID:      sess.user.ID,
		PlanType:    sess.tier.ServerKey(),
		ModuleCount: sess.order.ModuleCount,
		Amount:      sess.order.Amount,
		AuthToken:   sess.user.Token,
	}
	sess.mu.Unlock()

	ctx := context.Background()
	if s.settings.VerifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.VerifyTimeout)
		defer cancel()
	}

	start := time.Now()
	_, err := s.orders.Verify(ctx, attempt, meta)
	metrics.StepDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())

	if err != nil {
		var verr *model.VerificationError
		if !errors.As(err, &verr) {
			err = &model.VerificationError{Err: err}
		}
		s.finish(sess, model.StateFailed, err)
		return
	}

	s.finish(sess, model.StateSucceeded, nil)
}

func (s *purchaseServiceImpl) finish(sess *purchaseSession, state model.PurchaseState, cause error) {
	sess.mu.Lock()
	if err := s.moveTo(sess, state); err != nil {
		sess.mu.Unlock()
		s.log.Error("cannot finish purchase session", slog.String("session_id", sess.id), slog.Any("error", err))
		return
	}
	sess.err = cause
	outcome := sess.outcome(s.now())
	sess.mu.Unlock()

	metrics.SessionOutcomes.WithLabelValues(state.String()).Inc()
	if cause != nil {
		s.log.Warn("purchase failed",
			slog.String("session_id", sess.id),
			slog.String("order_id", outcome.OrderID),
			slog.Any("error", cause))
	} else {
		s.log.Info("purchase succeeded",
			slog.String("session_id", sess.id),
			slog.String("order_id", outcome.OrderID))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishOutcome(ctx, outcome); err != nil {
		s.log.Error("failed to publish purchase outcome", slog.String("session_id", sess.id), slog.Any("error", err))
	}
}

// backToPlanSelection drops everything the failed confirm produced. Caller holds sess.mu.
func (s *purchaseServiceImpl) backToPlanSelection(sess *purchaseSession, cause error) error {
	sess.order = nil
	sess.err = cause
	if err := s.moveTo(sess, model.StatePlanSelected); err != nil {
		return err
	}
	s.log.Warn("confirm failed, back to plan selection",
		slog.String("session_id", sess.id),
		slog.Any("error", cause))
	return cause
}

// moveTo applies a state transition. Caller holds sess.mu (or owns sess exclusively).
func (s *purchaseServiceImpl) moveTo(sess *purchaseSession, next model.PurchaseState) error {
	if !model.CanTransitionTo(sess.state, next) {
		return fmt.Errorf("%w: %s -> %s", model.ErrIllegalTransition, sess.state, next)
	}
	sess.state = next
	sess.updatedAt = s.now()
	if next.IsTerminal() {
		close(sess.done)
	}
	return nil
}

func (s *purchaseServiceImpl) await(ctx context.Context, sess *purchaseSession) (*model.SessionView, error) {
	select {
	case <-sess.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

func (s *purchaseServiceImpl) awaitingSession(sessionID string) (*purchaseSession, *model.Order, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != model.StateAwaitingGateway || sess.order == nil {
		return nil, nil, fmt.Errorf("%w: no open checkout in state %s", model.ErrIllegalTransition, sess.state)
	}
	return sess, sess.order, nil
}

func (s *purchaseServiceImpl) checkoutView(sess *purchaseSession) (*model.CheckoutView, error) {
	options, ok := s.gateway.Options(sess.order.OrderID)
	if !ok {
		return nil, fmt.Errorf("%w %q", model.ErrUnknownCheckout, sess.order.OrderID)
	}
	return &model.CheckoutView{
		SessionID: sess.id,
		ScriptURL: s.loader.ScriptURL(),
		Options:   options,
	}, nil
}

func (s *purchaseServiceImpl) session(sessionID string) (*purchaseSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// pruneExpired forgets sessions idle for longer than the TTL. Idle time counts from the
// last state change, so a checkout is dismissed only after sitting open for a full TTL.
// Sessions with a backend call in flight are left alone.
func (s *purchaseServiceImpl) pruneExpired() {
	if s.settings.SessionTTL <= 0 {
		return
	}
	cutoff := s.now().Add(-s.settings.SessionTTL)

	var expired []*purchaseSession
	s.mu.Lock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		old := sess.updatedAt.Before(cutoff) && !inFlight(sess.state)
		sess.mu.Unlock()
		if old {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.mu.Lock()
		sess.closed = true
		state, order := sess.state, sess.order
		sess.mu.Unlock()

		if state == model.StateAwaitingGateway && order != nil {
			_ = s.gateway.Dismiss(order.OrderID)
		}
		s.log.Info("purchase session expired", slog.String("session_id", sess.id), slog.String("state", state.String()))
	}
}

func inFlight(state model.PurchaseState) bool {
	return state == model.StateCreatingOrder || state == model.StateVerifying
}

func (p *purchaseSession) view() *model.SessionView {
	v := &model.SessionView{
		ID:          p.id,
		CourseID:    p.course.ID,
		CourseTitle: p.course.Title,
		Highlights:  p.course.Highlights,
		Plan:        p.tier,
		Quote:       p.quote,
		Currency:    p.course.Currency,
		State:       p.state,
		Error:       model.UserMessage(p.err),
		CreatedAt:   p.createdAt,
		UpdatedAt:   p.updatedAt,
	}
	if p.order != nil {
		v.OrderID = p.order.OrderID
	}
	return v
}

func (p *purchaseSession) outcome(at time.Time) model.PurchaseOutcome {
	o := model.PurchaseOutcome{
		SessionID:  p.id,
		CourseID:   p.course.ID,
		PlanType:   p.tier.ServerKey(),
		State:      p.state,
		OccurredAt: at,
	}
	if p.user != nil {
		o.UserID = p.user.ID
	}
	if p.order != nil {
		o.OrderID = p.order.OrderID
		o.Amount = p.order.Amount
		o.Currency = p.order.Currency
	}
	if p.err != nil {
		o.Error = p.err.Error()
	}
	return o
}
