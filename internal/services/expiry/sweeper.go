// Package expiry marks cards past their expiry date as EXPIRED on a
// schedule. It is disabled unless EXPIRY_SWEEP_ENABLED is set; transfers
// themselves only ever look at card status.
package expiry

import (
	"context"
	"fmt"
	"time"

	"bankcards/internal/repositories"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const defaultBatchSize = 500

// CardExpirer performs the locked status transition for one card.
type CardExpirer interface {
	ExpireCard(ctx context.Context, cardID uuid.UUID, asOf time.Time) (bool, error)
}

// Sweeper finds cards whose expiry date has passed and expires them.
type Sweeper struct {
	store     repositories.CardStore
	expirer   CardExpirer
	logger    *logrus.Logger
	batchSize int
	now       func() time.Time
	cron      *cron.Cron
}

func NewSweeper(store repositories.CardStore, expirer CardExpirer, logger *logrus.Logger) *Sweeper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sweeper{
		store:     store,
		expirer:   expirer,
		logger:    logger,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
}

// Sweep expires every card whose expiry date is before the current day and
// returns how many cards changed status. Cards that fail are logged and
// skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	expired := 0
	skipped := make(map[uuid.UUID]struct{})
	for {
		cards, err := s.store.FindExpiredBefore(ctx, today, s.batchSize+len(skipped))
		if err != nil {
			return expired, fmt.Errorf("failed to find expired cards: %w", err)
		}

		progressed := false
		for _, card := range cards {
			if _, skip := skipped[card.ID]; skip {
				continue
			}
			changed, err := s.expirer.ExpireCard(ctx, card.ID, today)
			if err != nil {
				s.logger.WithError(err).WithField("card_id", card.ID).Warn("failed to expire card")
				skipped[card.ID] = struct{}{}
				continue
			}
			if changed {
				expired++
				progressed = true
			}
		}

		if !progressed || len(cards) < s.batchSize+len(skipped) {
			break
		}
	}

	s.logger.WithField("expired", expired).Info("expiry sweep finished")
	return expired, nil
}

// Start schedules Sweep with a standard cron spec or descriptor such as
// "@daily".
func (s *Sweeper) Start(spec string) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.VerbosePrintfLogger(s.logger))),
	)
	_, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.logger.WithError(err).Error("expiry sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid expiry sweep schedule %q: %w", spec, err)
	}

	s.cron = c
	c.Start()
	s.logger.WithField("schedule", spec).Info("expiry sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
