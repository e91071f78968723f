package repositories

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"bankcards/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNoTransaction = errors.New("operation requires an open unit of work")
)

// CardStore is the only path to persisted cards and transfers.
//
// Single calls outside ExecuteInTransaction commit on their own. Inside
// ExecuteInTransaction every call made on the store passed to fn joins one
// atomic unit of work; returning an error from fn rolls all of it back.
type CardStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Card, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	Save(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]models.Card, int64, error)
	FindExpiredBefore(ctx context.Context, before time.Time, limit int) ([]models.Card, error)

	// LockCards takes exclusive locks on the given cards in ascending id
	// order and returns the locked rows keyed by id. Ids that do not resolve
	// are absent from the map. Fails with CONTENTION if a lock is not
	// granted within the store's lock timeout.
	LockCards(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Card, error)

	CreateTransfer(ctx context.Context, transfer *models.Transfer) error
	FindTransfersByUser(ctx context.Context, userID uint, offset, limit int) ([]models.Transfer, int64, error)

	ExecuteInTransaction(ctx context.Context, fn func(CardStore) error) error
}

// SortIDs returns the distinct ids in the order locks must be taken.
// Byte order matches the ordering of the uuid column type in postgres.
func SortIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	sorted := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})
	return sorted
}
