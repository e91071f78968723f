package handlers

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	apperrors "bankcards/internal/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		notInBody  string
		wantLogged bool
	}{
		{name: "card not found", err: apperrors.CardNotFound("c1"), wantStatus: fiber.StatusNotFound, wantBody: `"code":"CARD_NOT_FOUND"`},
		{name: "user not found", err: apperrors.UserNotFound(5), wantStatus: fiber.StatusNotFound},
		{name: "card in use", err: apperrors.CardInUse("c1"), wantStatus: fiber.StatusConflict},
		{name: "blocked", err: apperrors.CardBlocked("c1"), wantStatus: fiber.StatusUnprocessableEntity},
		{name: "expired", err: apperrors.CardExpired("c1"), wantStatus: fiber.StatusUnprocessableEntity},
		{name: "same card", err: apperrors.ErrSameCardTransfer, wantStatus: fiber.StatusUnprocessableEntity},
		{
			name:       "insufficient funds",
			err:        apperrors.InsufficientFunds(decimal.RequireFromString("150"), decimal.RequireFromString("100")),
			wantStatus: fiber.StatusUnprocessableEntity,
			wantBody:   "required: 150.00, available: 100.00",
		},
		{name: "invalid amount", err: apperrors.ErrInvalidAmount, wantStatus: fiber.StatusBadRequest},
		{name: "invalid status", err: apperrors.InvalidCardStatus("X"), wantStatus: fiber.StatusBadRequest},
		{name: "invalid number", err: apperrors.ErrInvalidCardNumber, wantStatus: fiber.StatusBadRequest},
		{name: "contention", err: apperrors.Contention("c1", errors.New("lock timeout")), wantStatus: fiber.StatusServiceUnavailable},
		{
			name:       "crypto failure hides cause",
			err:        apperrors.CryptoFailure(errors.New("cipher: message authentication failed")),
			wantStatus: fiber.StatusInternalServerError,
			notInBody:  "authentication",
			wantLogged: true,
		},
		{
			name:       "unexpected error hidden",
			err:        errors.New("pq: connection refused"),
			wantStatus: fiber.StatusInternalServerError,
			notInBody:  "connection refused",
			wantLogged: true,
		},
		{name: "forbidden", err: errForbidden, wantStatus: fiber.StatusForbidden},
		{name: "bad request", err: &requestError{message: "Invalid card ID"}, wantStatus: fiber.StatusBadRequest, wantBody: "Invalid card ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return writeError(c, logger, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				assert.Contains(t, string(body), tt.wantBody)
			}
			if tt.notInBody != "" {
				assert.NotContains(t, string(body), tt.notInBody)
			}
			if tt.wantLogged {
				require.NotNil(t, hook.LastEntry())
				assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
			}
		})
	}
}

func TestWriteError_ContentionRetryAfter(t *testing.T) {
	logger, _ := test.NewNullLogger()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return writeError(c, logger, apperrors.Contention("c1", nil))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}
