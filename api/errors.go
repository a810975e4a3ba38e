package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paw-chain/vaultbook/app"
	"github.com/paw-chain/vaultbook/x/vault/types"
)

// statusFor maps a ledger or keeper error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrNotInitialized):
		return http.StatusServiceUnavailable, "NOT_INITIALIZED"
	case errors.Is(err, app.ErrInvariantBroken):
		return http.StatusInternalServerError, "INVARIANT_BROKEN"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "CANCELED"
	}

	switch types.Classify(err) {
	case types.ClassAuthorization:
		return http.StatusForbidden, "UNAUTHORIZED"
	case types.ClassState:
		return http.StatusConflict, "STATE"
	case types.ClassBounds:
		return http.StatusUnprocessableEntity, "BOUNDS"
	case types.ClassNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case types.ClassInvalidInput:
		return http.StatusBadRequest, "INVALID_INPUT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// writeError responds with the status of err. The message is the error text
// so clients see which precondition failed.
func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.JSON(status, ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

func writeBadRequest(c *gin.Context, code string, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request",
		Code:    code,
		Details: err.Error(),
	})
}
