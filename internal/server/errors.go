package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/genstudio/internal/auth/domain"
	entitlementdomain "github.com/smallbiznis/genstudio/internal/entitlement/domain"
	generationdomain "github.com/smallbiznis/genstudio/internal/generation/domain"
	"github.com/smallbiznis/genstudio/internal/quota"
	usagedomain "github.com/smallbiznis/genstudio/internal/usage/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

const (
	messageQuotaExceeded = "Free trial has expired. Please upgrade to pro."
	messagePromptMissing = "Prompt is required"
	messageProviderError = "Internal Error"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// generationFailure ties a gateway error to the media kind requested, which
// the user-facing message names.
type generationFailure struct {
	kind generationdomain.MediaKind
	err  error
}

func (e *generationFailure) Error() string {
	return fmt.Sprintf("generate %s: %v", e.kind, e.err)
}

func (e *generationFailure) Unwrap() error { return e.err }

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var genErr *generationFailure
	switch {
	case errors.Is(err, generationdomain.ErrInvalidPrompt):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_prompt",
			Message: messagePromptMissing,
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   "request",
					Code:    err.Error(),
					Message: "invalid value",
				},
			},
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrNoCredentials),
		errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "Unauthorized",
		}
	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusForbidden, errorPayload{
			Type:    "quota_exceeded",
			Message: messageQuotaExceeded,
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "Too many requests, please slow down.",
		}
	case generationdomain.IsNormalizationFailure(err):
		kind := generationdomain.MediaKind("asset")
		if errors.As(err, &genErr) {
			kind = genErr.kind
		}
		return http.StatusInternalServerError, errorPayload{
			Type:    "generation_failed",
			Message: fmt.Sprintf("Failed to generate %s URL", kind),
		}
	case errors.Is(err, generationdomain.ErrProviderUnavailable):
		return http.StatusInternalServerError, errorPayload{
			Type:    "provider_unavailable",
			Message: messageProviderError,
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: messageProviderError,
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, generationdomain.ErrUnsupportedMediaKind),
		errors.Is(err, authdomain.ErrInvalidName),
		errors.Is(err, entitlementdomain.ErrInvalidCaller),
		errors.Is(err, entitlementdomain.ErrInvalidStatus),
		errors.Is(err, entitlementdomain.ErrInvalidPlan),
		errors.Is(err, usagedomain.ErrInvalidCaller),
		errors.Is(err, usagedomain.ErrInvalidIdempotencyKey):
		return true
	default:
		return false
	}
}

// classifyErrorForLog returns the envelope type and the most specific cause
// for request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if kind := generationdomain.KindOf(err); kind != nil {
		code = kind.Error()
	}
	return payload.Type, code
}
