package handlers

import (
	"errors"

	apperrors "bankcards/internal/errors"
	"bankcards/internal/utils/response"
	"bankcards/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// requestError is a malformed request detected before any service call.
type requestError struct {
	message string
	fields  map[string]string
}

func (e *requestError) Error() string { return e.message }

var errForbidden = errors.New("forbidden")

// statusFor maps a ledger error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case apperrors.CodeCardNotFound, apperrors.CodeUserNotFound:
		return fiber.StatusNotFound
	case apperrors.CodeCardInUse:
		return fiber.StatusConflict
	case apperrors.CodeCardBlocked, apperrors.CodeCardExpired,
		apperrors.CodeInsufficientFunds, apperrors.CodeSameCardTransfer:
		return fiber.StatusUnprocessableEntity
	case apperrors.CodeInvalidAmount, apperrors.CodeInvalidCardStatus,
		apperrors.CodeInvalidCardNumber, apperrors.CodeInvalidExpiryDate:
		return fiber.StatusBadRequest
	case apperrors.CodeContention:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as a JSON error response. Unexpected errors are
// logged and hidden behind a generic message.
func writeError(c *fiber.Ctx, logger *logrus.Logger, err error) error {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		if len(reqErr.fields) > 0 {
			return response.ValidationError(c, reqErr.fields)
		}
		return response.BadRequest(c, reqErr.message)
	}
	if errors.Is(err, errForbidden) {
		return response.Forbidden(c)
	}

	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		logger.WithError(err).WithField("path", c.Path()).Error("request failed")
		return response.ServerError(c, "internal server error")
	}

	status := statusFor(domainErr.Code)
	switch domainErr.Code {
	case apperrors.CodeCryptoFailure:
		logger.WithError(err).WithField("path", c.Path()).Error("card data could not be decrypted")
		return response.CodedError(c, status, domainErr.Code, apperrors.ErrCryptoFailure.Message)
	case apperrors.CodeContention:
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	if status == fiber.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return response.CodedError(c, status, domainErr.Code, domainErr.Message)
}

// bind parses the JSON body into dst and runs its validate tags.
func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return &requestError{message: "Invalid request format"}
	}
	v := validation.New()
	v.Struct(dst)
	if !v.Valid() {
		return &requestError{message: "validation failed", fields: v.Errors}
	}
	return nil
}

func cardIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, &requestError{message: "Invalid card ID"}
	}
	return id, nil
}
