package handlers

import (
	"strconv"

	"bankcards/internal/middleware"
	"bankcards/internal/services/ledger"
	"bankcards/internal/services/transfer"
	"bankcards/internal/utils/pagination"
	"bankcards/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TransferHandler exposes card-to-card transfer endpoints.
type TransferHandler struct {
	transfers transfer.Service
	ledger    ledger.Service
	lookup    CardLookup
	logger    *logrus.Logger
}

func NewTransferHandler(transfers transfer.Service, ledgerService ledger.Service, lookup CardLookup, logger *logrus.Logger) *TransferHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &TransferHandler{transfers: transfers, ledger: ledgerService, lookup: lookup, logger: logger}
}

type transferRequest struct {
	SourceCardID      string          `json:"source_card_id" validate:"required,uuid"`
	DestinationCardID string          `json:"destination_card_id" validate:"required,uuid"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description" validate:"max=500"`
}

// Transfer handles POST /api/transfers. Non-admin callers must own the
// source card; a missing source card is reported by the engine itself.
func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	var req transferRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, h.logger, err)
	}
	src := uuid.MustParse(req.SourceCardID)
	dst := uuid.MustParse(req.DestinationCardID)

	if !claims.IsAdmin() {
		if err := checkOwner(c.UserContext(), h.lookup, src, claims.UserID); err != nil && !isCardNotFound(err) {
			return writeError(c, h.logger, err)
		}
	}

	record, err := h.transfers.Transfer(c.UserContext(), src, dst, req.Amount, req.Description)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return response.Created(c, "Transfer completed successfully", record)
}

// History handles GET /api/transfers. Admins may pass user_id to read
// another user's history.
func (h *TransferHandler) History(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	userID := claims.UserID
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return response.BadRequest(c, "Invalid user ID")
		}
		if uint(id) != claims.UserID && !claims.IsAdmin() {
			return response.Forbidden(c)
		}
		userID = uint(id)
	}

	p := pagination.ParseFromRequest(c)
	records, total, err := h.ledger.TransferHistory(c.UserContext(), userID, p.Offset, p.Limit)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	p.Total = total
	return c.JSON(pagination.Response(p, records))
}
