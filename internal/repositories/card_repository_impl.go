package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "bankcards/internal/errors"
	"bankcards/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres error codes the store translates into ledger errors.
const (
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgForeignKeyViolation  = "23503"
)

type cardRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
	inTx        bool
}

// NewCardRepository returns a postgres-backed CardStore. Row locks wait at
// most lockTimeout before failing with CONTENTION.
func NewCardRepository(db *gorm.DB, lockTimeout time.Duration) CardStore {
	return &cardRepository{
		db:          db,
		lockTimeout: lockTimeout,
	}
}

func (r *cardRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.CardNotFound(id.String())
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (r *cardRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Card{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check card: %w", err)
	}
	return count > 0, nil
}

func (r *cardRepository) Save(ctx context.Context, card *models.Card) error {
	if err := r.db.WithContext(ctx).Save(card).Error; err != nil {
		return translateError(err, card.ID.String(), "failed to save card")
	}
	return nil
}

func (r *cardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Card{}, "id = ?", id)
	if result.Error != nil {
		if isForeignKeyViolation(result.Error) {
			return apperrors.CardInUse(id.String())
		}
		return translateError(result.Error, id.String(), "failed to delete card")
	}
	if result.RowsAffected == 0 {
		return apperrors.CardNotFound(id.String())
	}
	return nil
}

func (r *cardRepository) FindByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]models.Card, int64, error) {
	var (
		cards []models.Card
		total int64
	)

	query := r.db.WithContext(ctx).Model(&models.Card{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}
	err := query.Order("created_at DESC").Order("id").
		Offset(offset).
		Limit(limit).
		Find(&cards).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, total, nil
}

func (r *cardRepository) FindExpiredBefore(ctx context.Context, before time.Time, limit int) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.WithContext(ctx).
		Where("expiry_date < ? AND status <> ?", before, models.CardStatusExpired).
		Order("expiry_date").
		Limit(limit).
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired cards: %w", err)
	}
	return cards, nil
}

func (r *cardRepository) LockCards(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Card, error) {
	if !r.inTx {
		return nil, ErrNoTransaction
	}

	locked := make(map[uuid.UUID]*models.Card, len(ids))
	for _, id := range SortIDs(ids) {
		var card models.Card
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&card, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, translateError(err, id.String(), "failed to lock card")
		}
		locked[id] = &card
	}
	return locked, nil
}

func (r *cardRepository) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(transfer).Error; err != nil {
		return translateError(err, transfer.SourceCardID.String(), "failed to create transfer")
	}
	return nil
}

func (r *cardRepository) FindTransfersByUser(ctx context.Context, userID uint, offset, limit int) ([]models.Transfer, int64, error) {
	var (
		transfers []models.Transfer
		total     int64
	)

	query := r.db.WithContext(ctx).Model(&models.Transfer{}).
		Where("source_owner_id = ? OR destination_owner_id = ?", userID, userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}
	err := query.Order("timestamp DESC").Order("id").
		Offset(offset).
		Limit(limit).
		Find(&transfers).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get transfer history: %w", err)
	}
	return transfers, total, nil
}

func (r *cardRepository) ExecuteInTransaction(ctx context.Context, fn func(CardStore) error) error {
	if r.inTx {
		return fn(r)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}

		txRepo := &cardRepository{db: tx, lockTimeout: r.lockTimeout, inTx: true}
		return fn(txRepo)
	})
}

// translateError maps postgres failures onto ledger errors. Lock waits that
// time out and deadlock victims become CONTENTION so callers may retry.
func translateError(err error, cardID, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFailure:
			return apperrors.Contention(cardID, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Contention(cardID, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
