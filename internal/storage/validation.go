package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fairbill/fairbill/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidRule  = errors.New("invalid tariff rule")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRule validates a tariff rule before it is persisted.
func validateRule(rule *model.TariffRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return nil
}

// validateVerification validates a verification record before it is
// persisted.
func validateVerification(record *model.VerificationRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if strings.TrimSpace(record.BillHash) == "" {
		return fmt.Errorf("%w: record.BillHash", ErrEmptyString)
	}
	if record.Recommendation == "" {
		return fmt.Errorf("%w: record.Recommendation", ErrEmptyString)
	}
	return nil
}
