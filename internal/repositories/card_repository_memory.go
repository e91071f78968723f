package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "bankcards/internal/errors"
	"bankcards/internal/models"

	"github.com/google/uuid"
)

// MemoryCardStore is a CardStore held in process memory. Each card has its
// own lock; a unit of work stages writes and publishes them on commit, so
// readers only ever see committed state.
type MemoryCardStore struct {
	mu        sync.RWMutex
	cards     map[uuid.UUID]models.Card
	transfers []models.Transfer

	locksMu sync.Mutex
	locks   map[uuid.UUID]chan struct{}

	lockTimeout time.Duration
	now         func() time.Time
}

func NewMemoryCardStore(lockTimeout time.Duration) *MemoryCardStore {
	return &MemoryCardStore{
		cards:       make(map[uuid.UUID]models.Card),
		locks:       make(map[uuid.UUID]chan struct{}),
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

func (s *MemoryCardStore) FindByID(_ context.Context, id uuid.UUID) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.cards[id]
	if !ok {
		return nil, apperrors.CardNotFound(id.String())
	}
	return &card, nil
}

func (s *MemoryCardStore) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.cards[id]
	return ok, nil
}

func (s *MemoryCardStore) Save(ctx context.Context, card *models.Card) error {
	return s.ExecuteInTransaction(ctx, func(tx CardStore) error {
		if card.ID != uuid.Nil {
			if _, err := tx.LockCards(ctx, card.ID); err != nil {
				return err
			}
		}
		return tx.Save(ctx, card)
	})
}

func (s *MemoryCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.ExecuteInTransaction(ctx, func(tx CardStore) error {
		if _, err := tx.LockCards(ctx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
}

func (s *MemoryCardStore) FindByOwner(_ context.Context, ownerID uint, offset, limit int) ([]models.Card, int64, error) {
	s.mu.RLock()
	owned := make([]models.Card, 0)
	for _, card := range s.cards {
		if card.OwnerID == ownerID {
			owned = append(owned, card)
		}
	}
	s.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID.String() < owned[j].ID.String()
	})
	return paginate(owned, offset, limit), int64(len(owned)), nil
}

func (s *MemoryCardStore) FindExpiredBefore(_ context.Context, before time.Time, limit int) ([]models.Card, error) {
	s.mu.RLock()
	expired := make([]models.Card, 0)
	for _, card := range s.cards {
		if card.ExpiryDate.Before(before) && card.Status != models.CardStatusExpired {
			expired = append(expired, card)
		}
	}
	s.mu.RUnlock()

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiryDate.Before(expired[j].ExpiryDate)
	})
	return paginate(expired, 0, limit), nil
}

func (s *MemoryCardStore) LockCards(context.Context, ...uuid.UUID) (map[uuid.UUID]*models.Card, error) {
	return nil, ErrNoTransaction
}

func (s *MemoryCardStore) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	return s.ExecuteInTransaction(ctx, func(tx CardStore) error {
		return tx.CreateTransfer(ctx, transfer)
	})
}

func (s *MemoryCardStore) FindTransfersByUser(_ context.Context, userID uint, offset, limit int) ([]models.Transfer, int64, error) {
	s.mu.RLock()
	matched := make([]models.Transfer, 0)
	for _, t := range s.transfers {
		if t.SourceOwnerID == userID || t.DestinationOwnerID == userID {
			matched = append(matched, t)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return paginate(matched, offset, limit), int64(len(matched)), nil
}

func (s *MemoryCardStore) ExecuteInTransaction(ctx context.Context, fn func(CardStore) error) error {
	tx := &memoryTx{
		store:   s,
		staged:  make(map[uuid.UUID]models.Card),
		deleted: make(map[uuid.UUID]struct{}),
		held:    make(map[uuid.UUID]struct{}),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// acquire takes the card's lock, waiting at most the lock timeout.
func (s *MemoryCardStore) acquire(ctx context.Context, id uuid.UUID) error {
	s.locksMu.Lock()
	sem, ok := s.locks[id]
	if !ok {
		sem = make(chan struct{}, 1)
		s.locks[id] = sem
	}
	s.locksMu.Unlock()

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return nil
	case <-timer.C:
		return apperrors.Contention(id.String(), context.DeadlineExceeded)
	case <-ctx.Done():
		return apperrors.Contention(id.String(), ctx.Err())
	}
}

func (s *MemoryCardStore) releaseLock(id uuid.UUID) {
	s.locksMu.Lock()
	sem := s.locks[id]
	s.locksMu.Unlock()
	<-sem
}

// memoryTx is one unit of work against a MemoryCardStore.
type memoryTx struct {
	store     *MemoryCardStore
	staged    map[uuid.UUID]models.Card
	deleted   map[uuid.UUID]struct{}
	transfers []models.Transfer
	held      map[uuid.UUID]struct{}
}

func (tx *memoryTx) lookup(id uuid.UUID) (models.Card, bool) {
	if _, gone := tx.deleted[id]; gone {
		return models.Card{}, false
	}
	if card, ok := tx.staged[id]; ok {
		return card, true
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	card, ok := tx.store.cards[id]
	return card, ok
}

func (tx *memoryTx) FindByID(_ context.Context, id uuid.UUID) (*models.Card, error) {
	card, ok := tx.lookup(id)
	if !ok {
		return nil, apperrors.CardNotFound(id.String())
	}
	return &card, nil
}

func (tx *memoryTx) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := tx.lookup(id)
	return ok, nil
}

func (tx *memoryTx) Save(_ context.Context, card *models.Card) error {
	now := tx.store.now()
	if card.ID == uuid.Nil {
		if err := card.BeforeCreate(nil); err != nil {
			return err
		}
	}
	if card.Status == "" {
		card.Status = models.CardStatusActive
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	delete(tx.deleted, card.ID)
	tx.staged[card.ID] = *card
	return nil
}

func (tx *memoryTx) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := tx.lookup(id); !ok {
		return apperrors.CardNotFound(id.String())
	}
	if tx.referenced(id) {
		return apperrors.CardInUse(id.String())
	}
	delete(tx.staged, id)
	tx.deleted[id] = struct{}{}
	return nil
}

func (tx *memoryTx) referenced(id uuid.UUID) bool {
	for _, t := range tx.transfers {
		if t.SourceCardID == id || t.DestinationCardID == id {
			return true
		}
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	for _, t := range tx.store.transfers {
		if t.SourceCardID == id || t.DestinationCardID == id {
			return true
		}
	}
	return false
}

func (tx *memoryTx) FindByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]models.Card, int64, error) {
	return tx.store.FindByOwner(ctx, ownerID, offset, limit)
}

func (tx *memoryTx) FindExpiredBefore(ctx context.Context, before time.Time, limit int) ([]models.Card, error) {
	return tx.store.FindExpiredBefore(ctx, before, limit)
}

func (tx *memoryTx) LockCards(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Card, error) {
	locked := make(map[uuid.UUID]*models.Card, len(ids))
	for _, id := range SortIDs(ids) {
		if _, ok := tx.held[id]; !ok {
			if err := tx.store.acquire(ctx, id); err != nil {
				return nil, err
			}
			tx.held[id] = struct{}{}
		}
		if card, ok := tx.lookup(id); ok {
			locked[id] = &card
		}
	}
	return locked, nil
}

func (tx *memoryTx) CreateTransfer(_ context.Context, transfer *models.Transfer) error {
	for _, id := range []uuid.UUID{transfer.SourceCardID, transfer.DestinationCardID} {
		if _, ok := tx.lookup(id); !ok {
			return apperrors.CardNotFound(id.String())
		}
	}
	if err := transfer.BeforeCreate(nil); err != nil {
		return err
	}
	if transfer.Timestamp.IsZero() {
		transfer.Timestamp = tx.store.now()
	}
	tx.transfers = append(tx.transfers, *transfer)
	return nil
}

func (tx *memoryTx) FindTransfersByUser(ctx context.Context, userID uint, offset, limit int) ([]models.Transfer, int64, error) {
	return tx.store.FindTransfersByUser(ctx, userID, offset, limit)
}

func (tx *memoryTx) ExecuteInTransaction(_ context.Context, fn func(CardStore) error) error {
	return fn(tx)
}

func (tx *memoryTx) commit() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range tx.deleted {
		delete(s.cards, id)
	}
	for id, card := range tx.staged {
		s.cards[id] = card
	}
	s.transfers = append(s.transfers, tx.transfers...)
}

func (tx *memoryTx) release() {
	for id := range tx.held {
		tx.store.releaseLock(id)
	}
	tx.held = nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
