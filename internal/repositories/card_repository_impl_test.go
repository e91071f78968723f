package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	apperrors "bankcards/internal/errors"
	"bankcards/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		contention bool
	}{
		{name: "lock timeout", err: &pgconn.PgError{Code: pgLockNotAvailable}, contention: true},
		{name: "deadlock", err: &pgconn.PgError{Code: pgDeadlockDetected}, contention: true},
		{name: "serialization", err: &pgconn.PgError{Code: pgSerializationFailure}, contention: true},
		{name: "wrapped lock timeout", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgLockNotAvailable}), contention: true},
		{name: "context deadline", err: context.DeadlineExceeded, contention: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}},
		{name: "plain", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err, "card-1", "failed")
			assert.Equal(t, tt.contention, errors.Is(got, apperrors.ErrContention))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(&pgconn.PgError{Code: pgForeignKeyViolation}))
	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isForeignKeyViolation(errors.New("other")))
}

func TestCardRepository_LockCardsRequiresTransaction(t *testing.T) {
	repo := NewCardRepository(nil, time.Second)
	_, err := repo.LockCards(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoTransaction)
}

// openTestDB connects to LEDGER_TEST_DSN, skipping when it is unset.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DSN")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		db.Exec("DELETE FROM transfers")
		db.Exec("DELETE FROM cards")
		_ = Close(db)
	})
	return db
}

func TestCardRepository_Postgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCardRepository(db, 200*time.Millisecond)

	src := seedCard(t, repo, 1, "100.00")
	dst := seedCard(t, repo, 2, "0.00")

	err := repo.ExecuteInTransaction(ctx, func(tx CardStore) error {
		locked, err := tx.LockCards(ctx, dst.ID, src.ID)
		if err != nil {
			return err
		}
		locked[src.ID].Balance = locked[src.ID].Balance.Sub(decimal.RequireFromString("25.00"))
		locked[dst.ID].Balance = locked[dst.ID].Balance.Add(decimal.RequireFromString("25.00"))
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
			Amount:             decimal.RequireFromString("25.00"),
			Status:             models.TransferStatusSuccess,
			Timestamp:          time.Now(),
		})
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.00", got.Balance.StringFixed(2))

	history, total, err := repo.FindTransfersByUser(ctx, 2, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, history, 1)

	err = repo.Delete(ctx, src.ID)
	assert.True(t, errors.Is(err, apperrors.ErrCardInUse))
}

func TestCardRepository_PostgresLockTimeout(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCardRepository(db, 100*time.Millisecond)
	card := seedCard(t, repo, 1, "1.00")

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = repo.ExecuteInTransaction(ctx, func(tx CardStore) error {
			_, err := tx.LockCards(ctx, card.ID)
			close(holding)
			<-done
			return err
		})
	}()
	<-holding

	err := repo.ExecuteInTransaction(ctx, func(tx CardStore) error {
		_, err := tx.LockCards(ctx, card.ID)
		return err
	})
	close(done)

	assert.True(t, errors.Is(err, apperrors.ErrContention))
}
