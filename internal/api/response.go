package api

import (
	"errors"
	"net/http"

	"tier-rewards-go/internal/auth"
	"tier-rewards-go/internal/ledger"
	"tier-rewards-go/internal/promo"
	"tier-rewards-go/internal/referral"
	"tier-rewards-go/internal/store"
	"tier-rewards-go/internal/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

const (
	CodeAlreadyResolved    = 1001
	CodeInsufficientFunds  = 1002
	CodeBelowMinimum       = 1003
	CodeNothingToClaim     = 1004
	CodeAlreadySpun        = 1005
	CodeUsernameTaken      = 1006
	CodeInvalidReferral    = 1007
	CodeInvalidCredentials = 1008
)

const retryMessage = "service temporarily unavailable, please try again"

// Response is the envelope every endpoint returns.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func paramError(c *gin.Context, message string) {
	fail(c, CodeParamError, message)
}

// respondError maps a domain error to its envelope code. Anything not
// recognised is reported as a generic retryable failure.
func respondError(c *gin.Context, err error) {
	code, message := classify(err)
	if code == CodeServerError {
		zap.L().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	fail(c, code, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound, "not found"
	case errors.Is(err, workflow.ErrAlreadyResolved):
		return CodeAlreadyResolved, err.Error()
	case errors.Is(err, workflow.ErrInsufficientWithdrawable):
		return CodeInsufficientFunds, err.Error()
	case errors.Is(err, workflow.ErrBelowMinimum):
		return CodeBelowMinimum, err.Error()
	case errors.Is(err, ledger.ErrNothingToClaim):
		return CodeNothingToClaim, err.Error()
	case errors.Is(err, promo.ErrAlreadyGrantedToday):
		return CodeAlreadySpun, err.Error()
	case errors.Is(err, auth.ErrUsernameTaken):
		return CodeUsernameTaken, err.Error()
	case errors.Is(err, referral.ErrUnknownReferralCode), errors.Is(err, referral.ErrReferralCycle):
		return CodeInvalidReferral, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return CodeInvalidCredentials, err.Error()
	case errors.Is(err, workflow.ErrInvalidAmount),
		errors.Is(err, workflow.ErrInvalidDestination),
		errors.Is(err, workflow.ErrUnknownNetwork),
		errors.Is(err, workflow.ErrInvalidOutcome),
		errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrEmptyPassword):
		return CodeParamError, err.Error()
	default:
		return CodeServerError, retryMessage
	}
}
