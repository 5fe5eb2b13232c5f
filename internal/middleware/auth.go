package middleware

import (
	"errors"
	"net/http"
	"strings"

	"course-purchase/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const contextUserKey = "user"

var errInvalidToken = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")

// Claims is the session token issued by the course platform's login.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// AuthMiddleware attaches the caller to the context when a bearer token is present.
// Anonymous requests pass through; operations that need a user reject them later.
// The raw token is kept on the user so it can be forwarded to the payment backend.
func AuthMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return errInvalidToken
			}

			user, err := parseUser(raw, secret)
			if err != nil {
				return errInvalidToken.WithInternal(err)
			}

			c.Set(contextUserKey, user)
			return next(c)
		}
	}
}

// UserFromContext returns nil for anonymous requests.
func UserFromContext(c echo.Context) *model.User {
	user, _ := c.Get(contextUserKey).(*model.User)
	return user
}

func parseUser(raw string, secret []byte) (*model.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &model.User{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Token: raw,
	}, nil
}
