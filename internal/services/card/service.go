package card

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "bankcards/internal/errors"
	"bankcards/internal/models"
	"bankcards/internal/repositories"
	"bankcards/internal/services/masking"
	"bankcards/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type service struct {
	store   repositories.CardStore
	users   repositories.UserDirectory
	codec   Encrypter
	masks   masking.Resolver
	logger  *logrus.Logger
	metrics MetricsCollector
	now     func() time.Time
}

// NewService creates a new card service
func NewService(
	store repositories.CardStore,
	users repositories.UserDirectory,
	codec Encrypter,
	masks masking.Resolver,
	logger *logrus.Logger,
	metrics MetricsCollector,
) Service {
	if store == nil {
		panic("store is required")
	}
	if users == nil {
		panic("user directory is required")
	}
	if codec == nil {
		panic("codec is required")
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
		users:   users,
		codec:   codec,
		masks:   masks,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (s *service) CreateCard(ctx context.Context, req CreateRequest) (view *models.CardView, err error) {
	defer func() { s.record("create", err) }()

	if err := s.requireUser(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	pan, err := validation.NormalizePAN(req.CardNumber)
	if err != nil {
		return nil, err
	}
	expiry, err := validation.ParseExpiry(req.ExpiryDate, s.now())
	if err != nil {
		return nil, err
	}

	encrypted, err := s.codec.Encrypt(pan)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		EncryptedPAN: encrypted,
		OwnerID:      req.OwnerID,
		HolderName:   strings.TrimSpace(req.HolderName),
		ExpiryDate:   expiry,
		Status:       models.CardStatusActive,
		Balance:      decimal.Zero,
	}
	if err := s.store.Save(ctx, card); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"card_id":  card.ID,
		"owner_id": card.OwnerID,
	}).Info("card created")

	return s.view(ctx, card)
}

func (s *service) GetCard(ctx context.Context, cardID uuid.UUID) (*models.CardView, error) {
	card, err := s.store.FindByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, card)
}

func (s *service) ListCards(ctx context.Context, ownerID uint, offset, limit int) ([]models.CardView, int64, error) {
	if err := s.requireUser(ctx, ownerID); err != nil {
		return nil, 0, err
	}

	cards, total, err := s.store.FindByOwner(ctx, ownerID, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	views := make([]models.CardView, 0, len(cards))
	for i := range cards {
		view, err := s.view(ctx, &cards[i])
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *view)
	}
	return views, total, nil
}

func (s *service) UpdateCardStatus(ctx context.Context, cardID uuid.UUID, status string) (view *models.CardView, err error) {
	defer func() { s.record("update_status", err) }()

	parsed, err := models.ParseCardStatus(status)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, cardID, parsed)
}

func (s *service) BlockCard(ctx context.Context, cardID uuid.UUID) (view *models.CardView, err error) {
	defer func() { s.record("block", err) }()
	return s.setStatus(ctx, cardID, models.CardStatusBlocked)
}

// setStatus changes a card's status under its row lock. Setting the status
// a card already has writes nothing.
func (s *service) setStatus(ctx context.Context, cardID uuid.UUID, status models.CardStatus) (*models.CardView, error) {
	var view *models.CardView

	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.CardStore) error {
		locked, err := tx.LockCards(ctx, cardID)
		if err != nil {
			return err
		}
		card, ok := locked[cardID]
		if !ok {
			return apperrors.CardNotFound(cardID.String())
		}

		previous := card.Status
		card.Status = status

		view, err = s.view(ctx, card)
		if err != nil {
			return err
		}
		if previous == status {
			return nil
		}
		if err := tx.Save(ctx, card); err != nil {
			return err
		}

		s.logger.WithFields(logrus.Fields{
			"card_id":         cardID,
			"previous_status": previous,
			"status":          status,
		}).Info("card status updated")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) ExpireCard(ctx context.Context, cardID uuid.UUID, asOf time.Time) (bool, error) {
	changed := false

	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.CardStore) error {
		locked, err := tx.LockCards(ctx, cardID)
		if err != nil {
			return err
		}
		card, ok := locked[cardID]
		if !ok || card.Status == models.CardStatusExpired || !card.ExpiryDate.Before(asOf) {
			return nil
		}

		card.Status = models.CardStatusExpired
		if err := tx.Save(ctx, card); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		s.record("expire", err)
		return false, err
	}
	if changed {
		s.record("expire", nil)
		s.logger.WithField("card_id", cardID).Info("card expired")
	}
	return changed, nil
}

func (s *service) DeleteCard(ctx context.Context, cardID uuid.UUID) (err error) {
	defer func() { s.record("delete", err) }()

	card, err := s.store.FindByID(ctx, cardID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, cardID); err != nil {
		return err
	}
	s.masks.Forget(ctx, card)

	s.logger.WithField("card_id", cardID).Info("card deleted")
	return nil
}

func (s *service) requireUser(ctx context.Context, userID uint) error {
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.UserNotFound(userID)
	}
	return nil
}

func (s *service) view(ctx context.Context, card *models.Card) (*models.CardView, error) {
	masked, err := s.masks.Masked(ctx, card)
	if err != nil {
		return nil, err
	}
	view := models.NewCardView(card, masked)
	return &view, nil
}

func (s *service) record(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
		var de *apperrors.DomainError
		if errors.As(err, &de) {
			result = strings.ToLower(de.Code)
		}
	}
	s.metrics.RecordCardOperation(operation, result)
}
