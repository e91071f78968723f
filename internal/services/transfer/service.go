// Package transfer is the funds-transfer engine. A transfer validates the
// request, locks both cards in ascending id order, checks preconditions,
// moves the amount and records the transfer in one unit of work. The
// completed event is handed off only after commit.
package transfer

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "bankcards/internal/errors"
	"bankcards/internal/models"
	"bankcards/internal/repositories"
	"bankcards/internal/services/masking"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MaxAmountScale is the number of fractional digits an amount may carry.
const MaxAmountScale = 2

type service struct {
	store   repositories.CardStore
	masks   masking.Resolver
	events  EventSink
	logger  *logrus.Logger
	metrics MetricsCollector
	now     func() time.Time
}

// NewService creates a new transfer engine.
func NewService(
	store repositories.CardStore,
	masks masking.Resolver,
	events EventSink,
	logger *logrus.Logger,
	metrics MetricsCollector,
) Service {
	if store == nil {
		panic("store is required")
	}
	if masks == nil {
		panic("masking resolver is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		store:   store,
		masks:   masks,
		events:  events,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// ValidateAmount reports whether amount is a positive value with at most
// two fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return apperrors.ErrInvalidAmount
	}
	return nil
}

func (s *service) Transfer(
	ctx context.Context,
	sourceCardID, destinationCardID uuid.UUID,
	amount decimal.Decimal,
	description string,
) (*models.TransferRecord, error) {
	start := s.now()

	record, event, err := s.execute(ctx, sourceCardID, destinationCardID, amount, description)
	s.metrics.RecordTransfer(resultLabel(err), time.Since(start))

	log := s.logger.WithFields(logrus.Fields{
		"source_card_id":      sourceCardID,
		"destination_card_id": destinationCardID,
		"amount":              amount.String(),
	})
	if err != nil {
		log.WithError(err).Info("transfer rejected")
		return nil, err
	}

	amountFloat, _ := record.Amount.Float64()
	s.metrics.RecordTransferVolume(amountFloat)
	log.WithField("transfer_id", record.ID).Info("transfer committed")

	s.emit(event)
	return record, nil
}

// execute runs the checks and the mutation inside one unit of work. Nothing
// is written unless every check passes.
func (s *service) execute(
	ctx context.Context,
	sourceCardID, destinationCardID uuid.UUID,
	amount decimal.Decimal,
	description string,
) (*models.TransferRecord, models.TransferEvent, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, models.TransferEvent{}, err
	}
	if sourceCardID == destinationCardID {
		return nil, models.TransferEvent{}, apperrors.ErrSameCardTransfer
	}

	var (
		record models.TransferRecord
		event  models.TransferEvent
	)

	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.CardStore) error {
		locked, err := tx.LockCards(ctx, sourceCardID, destinationCardID)
		if err != nil {
			return err
		}

		source, ok := locked[sourceCardID]
		if !ok {
			return apperrors.CardNotFound(sourceCardID.String())
		}
		destination, ok := locked[destinationCardID]
		if !ok {
			return apperrors.CardNotFound(destinationCardID.String())
		}

		if err := checkPreconditions(source, destination, amount); err != nil {
			return err
		}

		// Masks are resolved before any write so a corrupt PAN aborts cleanly.
		sourceMasked, err := s.masks.Masked(ctx, source)
		if err != nil {
			return err
		}
		destinationMasked, err := s.masks.Masked(ctx, destination)
		if err != nil {
			return err
		}

		source.Balance = source.Balance.Sub(amount)
		destination.Balance = destination.Balance.Add(amount)
		if err := tx.Save(ctx, source); err != nil {
			return err
		}
		if err := tx.Save(ctx, destination); err != nil {
			return err
		}

		transfer := &models.Transfer{
			SourceCardID:       source.ID,
			DestinationCardID:  destination.ID,
			SourceOwnerID:      source.OwnerID,
			DestinationOwnerID: destination.OwnerID,
			Amount:             amount,
			Status:             models.TransferStatusSuccess,
			Timestamp:          s.now().UTC(),
			Description:        description,
		}
		if err := tx.CreateTransfer(ctx, transfer); err != nil {
			return err
		}

		record = models.NewTransferRecord(transfer, sourceMasked, destinationMasked)
		event = models.TransferEvent{
			TransferID:         transfer.ID,
			SourceOwnerID:      transfer.SourceOwnerID,
			DestinationOwnerID: transfer.DestinationOwnerID,
			SourceMasked:       sourceMasked,
			DestinationMasked:  destinationMasked,
			Amount:             record.Amount,
			Timestamp:          transfer.Timestamp,
			Status:             transfer.Status,
		}
		return nil
	})
	if err != nil {
		return nil, models.TransferEvent{}, err
	}
	return &record, event, nil
}

// checkPreconditions applies the status and balance checks in order:
// blocked, then expired, then funds.
func checkPreconditions(source, destination *models.Card, amount decimal.Decimal) error {
	for _, card := range []*models.Card{source, destination} {
		if card.Status == models.CardStatusBlocked {
			return apperrors.CardBlocked(card.ID.String())
		}
	}
	for _, card := range []*models.Card{source, destination} {
		if card.Status == models.CardStatusExpired {
			return apperrors.CardExpired(card.ID.String())
		}
	}
	if source.Balance.LessThan(amount) {
		return apperrors.InsufficientFunds(amount, source.Balance)
	}
	return nil
}

func (s *service) emit(event models.TransferEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Enqueue(event); err != nil {
		s.logger.WithError(err).WithField("transfer_id", event.TransferID).Error("failed to enqueue transfer event")
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return strings.ToLower(de.Code)
	}
	return "error"
}
