package handler

import (
	"context"
	"net/http"
	"time"

	"course-purchase/internal/dto"
	"course-purchase/internal/middleware"
	"course-purchase/internal/model"
	"course-purchase/internal/service"

	"github.com/labstack/echo/v4"
)

type PurchaseHandler struct {
	purchaseService service.PurchaseService
	awaitTimeout    time.Duration
}

func NewPurchaseHandler(purchaseService service.PurchaseService, awaitTimeout time.Duration) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		awaitTimeout:    awaitTimeout,
	}
}

func (h *PurchaseHandler) Open(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.OpenPurchaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.purchaseService.Open(ctx, req.CourseID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, session)
}

func (h *PurchaseHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.purchaseService.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

func (h *PurchaseHandler) SelectPlan(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SelectPlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tier, err := model.ParsePlanTier(req.Plan)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.purchaseService.SelectPlan(ctx, c.Param("id"), tier)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

func (h *PurchaseHandler) Confirm(c echo.Context) error {
	ctx := c.Request().Context()

	checkout, err := h.purchaseService.Confirm(ctx, c.Param("id"), middleware.UserFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, checkout)
}

func (h *PurchaseHandler) CheckoutOptions(c echo.Context) error {
	ctx := c.Request().Context()

	checkout, err := h.purchaseService.Checkout(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, checkout)
}

func (h *PurchaseHandler) Close(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.purchaseService.Close(ctx, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *PurchaseHandler) GatewaySuccess(c echo.Context) error {
	var req dto.PaymentSuccessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := h.awaitContext(c)
	defer cancel()

	session, err := h.purchaseService.HandleGatewaySuccess(ctx, c.Param("id"), req.Attempt())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

func (h *PurchaseHandler) GatewayFailure(c echo.Context) error {
	var req dto.PaymentFailureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	ctx, cancel := h.awaitContext(c)
	defer cancel()

	session, err := h.purchaseService.HandleGatewayFailure(ctx, c.Param("id"), req.Error)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

func (h *PurchaseHandler) GatewayDismiss(c echo.Context) error {
	ctx, cancel := h.awaitContext(c)
	defer cancel()

	session, err := h.purchaseService.HandleGatewayDismiss(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

// awaitContext bounds how long a callback request waits for verification to finish.
func (h *PurchaseHandler) awaitContext(c echo.Context) (context.Context, context.CancelFunc) {
	if h.awaitTimeout <= 0 {
		return context.WithCancel(c.Request().Context())
	}
	return context.WithTimeout(c.Request().Context(), h.awaitTimeout)
}
