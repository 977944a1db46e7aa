package auth

import (
	"net/http"
	"strings"

	domainauth "github.com/NordCoder/studybuddy/internal/domain/auth"
	"github.com/labstack/echo/v4"
)

const claimsKey = "auth.claims"

// RequireAccess rejects requests without a valid bearer access token and
// exposes the verified claims to the handler.
func RequireAccess(uc *Usecase) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := uc.Authenticate(c.Request().Context(), bearer(c.Request()))
			if err != nil {
				return err
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

func ClaimsFrom(c echo.Context) *domainauth.Claims {
	claims, _ := c.Get(claimsKey).(*domainauth.Claims)
	return claims
}

func bearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}
