package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// Rate limit reasons Google reports with 403 instead of 429.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

func apiError(err error) (*googleapi.Error, bool) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}

func hasRateLimitReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		if rateLimitReasons[item.Reason] {
			return true
		}
	}
	return false
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	gerr, ok := apiError(err)
	return ok && gerr.Code == http.StatusUnauthorized
}

// IsForbidden returns true if the error indicates insufficient permissions.
// 403 responses that carry a rate limit reason are not counted.
func IsForbidden(err error) bool {
	gerr, ok := apiError(err)
	return ok && gerr.Code == http.StatusForbidden && !hasRateLimitReason(gerr)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	gerr, ok := apiError(err)
	return ok && gerr.Code == http.StatusNotFound
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	gerr, ok := apiError(err)
	if !ok {
		return false
	}
	return gerr.Code == http.StatusTooManyRequests ||
		(gerr.Code == http.StatusForbidden && hasRateLimitReason(gerr))
}

// Retryable classifies Google API errors for retry.Policy. Auth,
// permission and not-found failures will not improve on retry; rate
// limits, server errors and transport failures might.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, domain.ErrContentTooLarge) || errors.Is(err, domain.ErrAuthRequired) {
		return false
	}
	gerr, ok := apiError(err)
	if !ok {
		return true
	}
	if IsRateLimited(err) {
		return true
	}
	return gerr.Code >= http.StatusInternalServerError
}

// WrapError tags a Google API error with the matching domain error while
// keeping the original in the chain.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case IsUnauthorized(err):
		return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
	case IsRateLimited(err):
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	case IsForbidden(err):
		return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
	case IsNotFound(err):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	default:
		return err
	}
}
