package service

import (
	"errors"
	"fmt"

	"github.com/postpilothq/postpilot/internal/tier"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrJobNotFound     = errors.New("job not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrAccountNotFound = errors.New("connected account not found")
	ErrRuleNotFound    = errors.New("automation rule not found")
	ErrNotOwner        = errors.New("resource belongs to another user")
	ErrNotRetryable    = errors.New("only failed jobs can be retried")
	ErrInvalidInput    = errors.New("invalid input")
)

// QuotaError carries the tier check that denied the request so callers can
// render current/limit values.
type QuotaError struct {
	Category string
	Check    tier.Check
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Check.Message)
}

// CreditError reports an insufficient-credits denial.
type CreditError struct {
	Required  int
	Available int
}

func (e *CreditError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d available", e.Required, e.Available)
}
