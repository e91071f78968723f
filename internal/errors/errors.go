// Package errors defines the ledger error taxonomy.
//
// Every failure raised by the ledger is a *DomainError carrying a stable Code
// plus the identifiers or amounts relevant to it. errors.Is matches on Code,
// so callers compare against the exported sentinels:
//
//	if errors.Is(err, apperrors.ErrInsufficientFunds) { ... }
package errors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes
const (
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeSameCardTransfer  = "SAME_CARD_TRANSFER"
	CodeCardNotFound      = "CARD_NOT_FOUND"
	CodeCardBlocked       = "CARD_BLOCKED"
	CodeCardExpired       = "CARD_EXPIRED"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeInvalidCardStatus = "INVALID_CARD_STATUS"
	CodeCryptoFailure     = "CRYPTO_FAILURE"
	CodeContention        = "CONTENTION"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeInvalidCardNumber = "INVALID_CARD_NUMBER"
	CodeInvalidExpiryDate = "INVALID_EXPIRY_DATE"
	CodeCardInUse         = "CARD_IN_USE"
)

// DomainError is a precise ledger failure.
type DomainError struct {
	Code    string
	Message string

	CardID    string
	UserID    uint
	Value     string
	Required  decimal.Decimal
	Available decimal.Decimal

	Err error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the caller may retry the failed operation as is.
func (e *DomainError) Retryable() bool {
	return e.Code == CodeContention
}
