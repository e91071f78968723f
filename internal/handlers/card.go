package handlers

import (
	"context"
	"errors"
	"strconv"

	apperrors "bankcards/internal/errors"
	"bankcards/internal/middleware"
	"bankcards/internal/models"
	"bankcards/internal/services/card"
	"bankcards/internal/services/ledger"
	"bankcards/internal/utils/pagination"
	"bankcards/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CardLookup loads a card without decrypting it, for ownership checks.
type CardLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Card, error)
}

type CardHandler struct {
	cards  card.Service
	ledger ledger.Service
	lookup CardLookup
	logger *logrus.Logger
}

func NewCardHandler(cards card.Service, ledgerService ledger.Service, lookup CardLookup, logger *logrus.Logger) *CardHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &CardHandler{cards: cards, ledger: ledgerService, lookup: lookup, logger: logger}
}

type createCardRequest struct {
	OwnerID    uint   `json:"owner_id" validate:"required"`
	CardNumber string `json:"card_number" validate:"required,pan"`
	HolderName string `json:"holder_name" validate:"required,max=100"`
	ExpiryDate string `json:"expiry_date" validate:"required,mmyy"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreateCard handles POST /api/cards (admin).
func (h *CardHandler) CreateCard(c *fiber.Ctx) error {
	var req createCardRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, h.logger, err)
	}

	view, err := h.cards.CreateCard(c.UserContext(), card.CreateRequest{
		OwnerID:    req.OwnerID,
		CardNumber: req.CardNumber,
		HolderName: req.HolderName,
		ExpiryDate: req.ExpiryDate,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return response.Created(c, "Card created successfully", view)
}

// ListCards handles GET /api/cards. Admins may list any owner via owner_id;
// other callers only see their own cards.
func (h *CardHandler) ListCards(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	ownerID := claims.UserID
	if raw := c.Query("owner_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return response.BadRequest(c, "Invalid owner ID")
		}
		if uint(id) != claims.UserID && !claims.IsAdmin() {
			return response.Forbidden(c)
		}
		ownerID = uint(id)
	}

	p := pagination.ParseFromRequest(c)
	views, total, err := h.cards.ListCards(c.UserContext(), ownerID, p.Offset, p.Limit)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	p.Total = total
	return c.JSON(pagination.Response(p, views))
}

// GetCard handles GET /api/cards/:id.
func (h *CardHandler) GetCard(c *fiber.Ctx) error {
	id, err := h.authorizeCard(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	view, err := h.cards.GetCard(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return response.Success(c, "Card retrieved successfully", view)
}

// UpdateCardStatus handles PUT /api/cards/:id (admin).
func (h *CardHandler) UpdateCardStatus(c *fiber.Ctx) error {
	id, err := cardIDParam(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	var req updateStatusRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, h.logger, err)
	}

	view, err := h.cards.UpdateCardStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return response.Success(c, "Card status updated successfully", view)
}

// BlockCard handles PUT /api/cards/:id/block. Owners may block their own cards.
func (h *CardHandler) BlockCard(c *fiber.Ctx) error {
	id, err := h.authorizeCard(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	view, err := h.cards.BlockCard(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return response.Success(c, "Card blocked successfully", view)
}

// DeleteCard handles DELETE /api/cards/:id (admin).
func (h *CardHandler) DeleteCard(c *fiber.Ctx) error {
	id, err := cardIDParam(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if err := h.cards.DeleteCard(c.UserContext(), id); err != nil {
		return writeError(c, h.logger, err)
	}
	return response.Success(c, "Card deleted successfully", nil)
}

// GetBalance handles GET /api/cards/:id/balance.
func (h *CardHandler) GetBalance(c *fiber.Ctx) error {
	id, err := h.authorizeCard(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	balance, err := h.ledger.CardBalance(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return response.Success(c, "Balance retrieved successfully", fiber.Map{
		"card_id": id,
		"balance": balance.StringFixed(2),
	})
}

// authorizeCard parses the :id param and checks that the caller owns the
// card or is an admin.
func (h *CardHandler) authorizeCard(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := cardIDParam(c)
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := middleware.Claims(c)
	if !ok {
		return uuid.Nil, errForbidden
	}
	if claims.IsAdmin() {
		return id, nil
	}
	if err := checkOwner(c.UserContext(), h.lookup, id, claims.UserID); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func checkOwner(ctx context.Context, lookup CardLookup, cardID uuid.UUID, userID uint) error {
	found, err := lookup.FindByID(ctx, cardID)
	if err != nil {
		return err
	}
	if found.OwnerID != userID {
		return errForbidden
	}
	return nil
}

func isCardNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrCardNotFound)
}
