package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var errBadBody = errors.New("invalid request body")

const msgInternal = "Internal server error"

// mapErr turns a usecase error into the status and message the web client expects.
func mapErr(err error) (int, string) {
	switch {
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, ErrFieldsRequired):
		return http.StatusBadRequest, "All fields are required"
	case errors.Is(err, ErrPasswordTooLong):
		return http.StatusBadRequest, "Password must be at most 72 bytes"
	case errors.Is(err, ErrUserExists):
		return http.StatusBadRequest, "User already exists!"
	case errors.Is(err, ErrCredentialsRequired):
		return http.StatusBadRequest, "Email and password are required"
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid Credentials"
	case errors.Is(err, ErrInvalidPassword):
		return http.StatusUnauthorized, "Invalid Password"
	case errors.Is(err, ErrRefreshRequired):
		return http.StatusBadRequest, "Refresh token is required"
	case errors.Is(err, ErrRefreshInvalid):
		return http.StatusUnauthorized, "Invalid refresh token"
	case errors.Is(err, ErrAccessRequired):
		return http.StatusUnauthorized, "Authorization token is required"
	case errors.Is(err, ErrAccessExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, ErrAccessInvalid):
		return http.StatusUnauthorized, "Invalid token"
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, msgInternal
		}
		return he.Code, fmt.Sprint(he.Message)
	}
	return http.StatusInternalServerError, msgInternal
}
