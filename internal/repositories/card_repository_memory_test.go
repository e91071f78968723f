package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "bankcards/internal/errors"
	"bankcards/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCard(t *testing.T, store CardStore, ownerID uint, balance string) *models.Card {
	t.Helper()
	card := &models.Card{
		EncryptedPAN: "ciphertext",
		OwnerID:      ownerID,
		HolderName:   "JANE DOE",
		ExpiryDate:   time.Date(2030, time.December, 31, 0, 0, 0, 0, time.UTC),
		Balance:      decimal.RequireFromString(balance),
	}
	require.NoError(t, store.Save(context.Background(), card))
	return card
}

func TestSortIDs(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("80000000-0000-0000-0000-000000000000")
	c := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	assert.Equal(t, []uuid.UUID{a, b, c}, SortIDs([]uuid.UUID{c, a, b, a}))
	assert.Empty(t, SortIDs(nil))
}

func TestMemoryCardStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCardStore(time.Second)

	card := seedCard(t, store, 1, "10.00")
	assert.NotEqual(t, uuid.Nil, card.ID)
	assert.Equal(t, models.CardStatusActive, card.Status)
	assert.False(t, card.CreatedAt.IsZero())

	found, err := store.FindByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, card.Balance.Equal(found.Balance))

	exists, err := store.ExistsByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = store.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, apperrors.ErrCardNotFound))
}

func TestMemoryCardStore_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCardStore(time.Second)
	card := seedCard(t, store, 1, "100.00")

	boom := errors.New("boom")
	err := store.ExecuteInTransaction(ctx, func(tx CardStore) error {
		locked, err := tx.LockCards(ctx, card.ID)
		require.NoError(t, err)
		locked[card.ID].Balance = decimal.Zero
		require.NoError(t, tx.Save(ctx, locked[card.ID]))

		// committed state is untouched while the unit of work is open
		committed, err := store.FindByID(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, "100.00", committed.Balance.StringFixed(2))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	after, err := store.FindByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", after.Balance.StringFixed(2))
}

func TestMemoryCardStore_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCardStore(time.Second)
	src := seedCard(t, store, 1, "100.00")
	dst := seedCard(t, store, 2, "0.00")

	err := store.ExecuteInTransaction(ctx, func(tx CardStore) error {
		locked, err := tx.LockCards(ctx, src.ID, dst.ID)
		if err != nil {
			return err
		}
		locked[src.ID].Balance = decimal.RequireFromString("60.00")
		locked[dst.ID].Balance = decimal.RequireFromString("40.00")
		if err := tx.Save(ctx, locked[src.ID]); err != nil {
			return err
		}
		if err := tx.Save(ctx, locked[dst.ID]); err != nil {
			return err
		}
		return tx.CreateTransfer(ctx, &models.Transfer{
			SourceCardID:       src.ID,
			DestinationCardID:  dst.ID,
			SourceOwnerID:      1,
			DestinationOwnerID: 2,
			Amount:             decimal.RequireFromString("40.00"),
			Status:             models.TransferStatusSuccess,
		})
	})
	require.NoError(t, err)

	got, err := store.FindByID(ctx, dst.ID)
	require.NoError(t, err)
	assert.Equal(t, "40.00", got.Balance.StringFixed(2))

	history, total, err := store.FindTransfersByUser(ctx, 2, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, history, 1)
	assert.NotEqual(t, uuid.Nil, history[0].ID)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestMemoryCardStore_LockCardsOmitsMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCardStore(time.Second)
	card := seedCard(t, store, 1, "1.00")
	missing := uuid.New()

	err := store.ExecuteInTransaction(ctx, func(tx CardStore) error {
		locked, err := tx.LockCards(ctx, card.ID, missing)
		require.NoError(t, err)
		assert.Contains(t, locked, card.ID)
		assert.NotContains(t, locked, missing)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryCardStore_LockCardsRequiresTransaction(t *testing.T) {
	store := NewMemoryCardStore(time.Second)
	_, err := store.LockCards(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoTransaction)
}

func TestMemoryCardStore_LockTimeout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCardStore(50 * time.Millisecond)
	card := seedCard(t, store, 1, "1.00")

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = store.ExecuteInTransaction(ctx, func(tx CardStore) error {
			_, err := tx.LockCards(ctx, card.ID)
			close(holding)
			<-done
			return err
		})
	}()
	<-holding

	err := store.ExecuteInTransaction(ctx, func(tx CardStore) error {
		_, err := tx.LockCards(ctx, card.ID)
		return err
	})
	close(done)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrContention))
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.True(t, de.Retryable())
	assert.Equal(t, card.ID.String(), de.CardID)
}

func TestMemoryCardStore_LocksReleasedAfterCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCardStore(50 * time.Millisecond)
	card := seedCard(t, store, 1, "1.00")

	for i := 0; i < 3; i++ {
		err := store.ExecuteInTransaction(ctx, func(tx CardStore) error {
			_, err := tx.LockCards(ctx, card.ID)
			return err
		})
		require.NoError(t, err)
	}
}

func TestMemoryCardStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCardStore(time.Second)
	free := seedCard(t, store, 1, "0.00")
	src := seedCard(t, store, 1, "5.00")
	dst := seedCard(t, store, 2, "0.00")

	require.NoError(t, store.CreateTransfer(ctx, &models.Transfer{
		SourceCardID:      src.ID,
		DestinationCardID: dst.ID,
		Amount:            decimal.RequireFromString("1.00"),
		Status:            models.TransferStatusSuccess,
	}))

	require.NoError(t, store.Delete(ctx, free.ID))
	exists, err := store.ExistsByID(ctx, free.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = store.Delete(ctx, free.ID)
	assert.True(t, errors.Is(err, apperrors.ErrCardNotFound))

	err = store.Delete(ctx, dst.ID)
	assert.True(t, errors.Is(err, apperrors.ErrCardInUse))
}

func TestMemoryCardStore_FindByOwnerPaginates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCardStore(time.Second)
	for i := 0; i < 5; i++ {
		seedCard(t, store, 9, "0.00")
	}
	seedCard(t, store, 10, "0.00")

	page, total, err := store.FindByOwner(ctx, 9, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page, 2)

	page, _, err = store.FindByOwner(ctx, 9, 4, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, _, err = store.FindByOwner(ctx, 9, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryCardStore_FindExpiredBefore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCardStore(time.Second)
	old := seedCard(t, store, 1, "0.00")
	old.ExpiryDate = time.Date(2020, time.January, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, old))

	already := seedCard(t, store, 1, "0.00")
	already.ExpiryDate = old.ExpiryDate
	already.Status = models.CardStatusExpired
	require.NoError(t, store.Save(ctx, already))

	seedCard(t, store, 1, "0.00")

	expired, err := store.FindExpiredBefore(ctx, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.ID, expired[0].ID)
}
