package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"course-purchase/internal/dto"
	"course-purchase/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// newHTTPErrorHandler renders every error as {"error": msg}. Domain errors carry the
// message the user sees; anything unrecognised is a 500 with a generic message.
func newHTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := statusFor(err)
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.Any("error", err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, &dto.ErrorResponse{Error: message})
		}
		if err != nil {
			log.Error("write error response", slog.Any("error", err))
		}
	}
}

func statusFor(err error) (int, string) {
	var (
		httpErr     *echo.HTTPError
		validErrs   validator.ValidationErrors
		authErr     *model.AuthRequiredError
		scriptErr   *model.ScriptLoadError
		orderErr    *model.OrderCreationError
		verifyErr   *model.VerificationError
		gatewayFail *model.GatewayFailure
	)

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, fmt.Sprint(httpErr.Message)
	case errors.As(err, &validErrs):
		fields := make([]string, 0, len(validErrs))
		for _, fe := range validErrs {
			fields = append(fields, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
		return http.StatusBadRequest, strings.Join(fields, ", ")
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.UserMessage()
	case errors.Is(err, model.ErrSessionNotFound), errors.Is(err, model.ErrCourseNotFound):
		return http.StatusNotFound, model.UserMessage(err)
	case errors.Is(err, model.ErrIllegalTransition), errors.Is(err, model.ErrUnknownCheckout):
		return http.StatusConflict, model.UserMessage(err)
	case errors.As(err, &scriptErr), errors.As(err, &orderErr), errors.As(err, &verifyErr):
		return http.StatusBadGateway, model.UserMessage(err)
	case errors.As(err, &gatewayFail):
		return http.StatusPaymentRequired, gatewayFail.UserMessage()
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}
