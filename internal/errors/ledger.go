package errors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidAmount = &DomainError{
		Code:    CodeInvalidAmount,
		Message: "transfer amount must be positive with at most two decimal places",
	}
	ErrSameCardTransfer = &DomainError{
		Code:    CodeSameCardTransfer,
		Message: "cannot transfer to the same card",
	}
	ErrCardNotFound      = &DomainError{Code: CodeCardNotFound, Message: "card not found"}
	ErrCardBlocked       = &DomainError{Code: CodeCardBlocked, Message: "card is blocked"}
	ErrCardExpired       = &DomainError{Code: CodeCardExpired, Message: "card has expired"}
	ErrInsufficientFunds = &DomainError{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrInvalidCardStatus = &DomainError{Code: CodeInvalidCardStatus, Message: "invalid card status"}
	ErrCryptoFailure     = &DomainError{Code: CodeCryptoFailure, Message: "card data could not be decrypted"}
	ErrContention        = &DomainError{Code: CodeContention, Message: "card is busy, retry later"}
	ErrUserNotFound      = &DomainError{Code: CodeUserNotFound, Message: "user not found"}
	ErrInvalidCardNumber = &DomainError{Code: CodeInvalidCardNumber, Message: "invalid card number"}
	ErrInvalidExpiryDate = &DomainError{Code: CodeInvalidExpiryDate, Message: "invalid expiry date"}
	ErrCardInUse         = &DomainError{Code: CodeCardInUse, Message: "card is referenced by transfers"}
)

func CardNotFound(cardID string) *DomainError {
	return &DomainError{
		Code:    CodeCardNotFound,
		Message: fmt.Sprintf("card with id %s not found", cardID),
		CardID:  cardID,
	}
}

func CardBlocked(cardID string) *DomainError {
	return &DomainError{
		Code:    CodeCardBlocked,
		Message: fmt.Sprintf("card with id %s is blocked", cardID),
		CardID:  cardID,
	}
}

func CardExpired(cardID string) *DomainError {
	return &DomainError{
		Code:    CodeCardExpired,
		Message: fmt.Sprintf("card with id %s has expired", cardID),
		CardID:  cardID,
	}
}

func InsufficientFunds(required, available decimal.Decimal) *DomainError {
	return &DomainError{
		Code: CodeInsufficientFunds,
		Message: fmt.Sprintf("insufficient funds. required: %s, available: %s",
			required.StringFixed(2), available.StringFixed(2)),
		Required:  required,
		Available: available,
	}
}

func InvalidCardStatus(value string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidCardStatus,
		Message: fmt.Sprintf("invalid card status: %s", value),
		Value:   value,
	}
}

// CryptoFailure wraps the underlying cause without exposing any card data.
func CryptoFailure(cause error) *DomainError {
	return &DomainError{
		Code:    CodeCryptoFailure,
		Message: ErrCryptoFailure.Message,
		Err:     cause,
	}
}

func Contention(cardID string, cause error) *DomainError {
	return &DomainError{
		Code:    CodeContention,
		Message: fmt.Sprintf("could not lock card %s in time, retry later", cardID),
		CardID:  cardID,
		Err:     cause,
	}
}

func UserNotFound(userID uint) *DomainError {
	return &DomainError{
		Code:    CodeUserNotFound,
		Message: fmt.Sprintf("user with id %d not found", userID),
		UserID:  userID,
	}
}

func InvalidExpiryDate(value string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidExpiryDate,
		Message: fmt.Sprintf("invalid expiry date: %s", value),
		Value:   value,
	}
}

func CardInUse(cardID string) *DomainError {
	return &DomainError{
		Code:    CodeCardInUse,
		Message: fmt.Sprintf("card with id %s is referenced by transfers", cardID),
		CardID:  cardID,
	}
}
