// Package ledger serves read-only views of balances and transfer history.
// Reads run outside any unit of work and see committed state only.
package ledger

import (
	"context"

	"bankcards/internal/models"
	"bankcards/internal/repositories"
	"bankcards/internal/services/masking"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service answers balance and history queries.
type Service interface {
	CardBalance(ctx context.Context, cardID uuid.UUID) (decimal.Decimal, error)
	TransferHistory(ctx context.Context, userID uint, offset, limit int) ([]models.TransferRecord, int64, error)
}

type service struct {
	store repositories.CardStore
	masks masking.Resolver
}

func NewService(store repositories.CardStore, masks masking.Resolver) Service {
	if store == nil {
		panic("store is required")
	}
	if masks == nil {
		panic("masking resolver is required")
	}
	return &service{store: store, masks: masks}
}

func (s *service) CardBalance(ctx context.Context, cardID uuid.UUID) (decimal.Decimal, error) {
	card, err := s.store.FindByID(ctx, cardID)
	if err != nil {
		return decimal.Zero, err
	}
	return card.Balance.Round(2), nil
}

// TransferHistory returns transfers where the user owns either card, newest
// first.
func (s *service) TransferHistory(ctx context.Context, userID uint, offset, limit int) ([]models.TransferRecord, int64, error) {
	transfers, total, err := s.store.FindTransfersByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	masked := make(map[uuid.UUID]string)
	maskOf := func(cardID uuid.UUID) (string, error) {
		if m, ok := masked[cardID]; ok {
			return m, nil
		}
		card, err := s.store.FindByID(ctx, cardID)
		if err != nil {
			return "", err
		}
		m, err := s.masks.Masked(ctx, card)
		if err != nil {
			return "", err
		}
		masked[cardID] = m
		return m, nil
	}

	records := make([]models.TransferRecord, 0, len(transfers))
	for i := range transfers {
		src, err := maskOf(transfers[i].SourceCardID)
		if err != nil {
			return nil, 0, err
		}
		dst, err := maskOf(transfers[i].DestinationCardID)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, models.NewTransferRecord(&transfers[i], src, dst))
	}
	return records, total, nil
}
