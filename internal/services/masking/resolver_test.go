package masking

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"testing"
	"time"

	apperrors "bankcards/internal/errors"
	"bankcards/internal/models"
	"bankcards/internal/repositories/cache"
	"bankcards/internal/utils/cardcrypto"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDecrypter struct {
	mock.Mock
}

func (m *MockDecrypter) Decrypt(encoded string) (string, error) {
	args := m.Called(encoded)
	return args.String(0), args.Error(1)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestResolver_Masked(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(*MockDecrypter)
		want      string
		wantErr   error
	}{
		{
			name: "decrypts and masks",
			setupMock: func(d *MockDecrypter) {
				d.On("Decrypt", "ct").Return("1111222233334444", nil).Once()
			},
			want: "**** **** **** 4444",
		},
		{
			name: "short pan",
			setupMock: func(d *MockDecrypter) {
				d.On("Decrypt", "ct").Return("12", nil).Once()
			},
			want: cardcrypto.MaskedSentinel,
		},
		{
			name: "crypto failure",
			setupMock: func(d *MockDecrypter) {
				d.On("Decrypt", "ct").Return("", apperrors.CryptoFailure(errors.New("tag mismatch"))).Once()
			},
			wantErr: apperrors.ErrCryptoFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := new(MockDecrypter)
			tt.setupMock(dec)
			r := NewResolver(dec, nil, quietLogger())

			got, err := r.Masked(context.Background(), &models.Card{ID: uuid.New(), EncryptedPAN: "ct"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			dec.AssertExpectations(t)
		})
	}
}

func TestResolver_CachesMask(t *testing.T) {
	ctx := context.Background()
	dec := new(MockDecrypter)
	dec.On("Decrypt", "ct").Return("1111222233334444", nil).Twice()

	store := cache.NewMemoryStore(time.Hour)
	r := NewResolver(dec, store, quietLogger())
	card := &models.Card{ID: uuid.New(), EncryptedPAN: "ct"}

	for i := 0; i < 3; i++ {
		got, err := r.Masked(ctx, card)
		require.NoError(t, err)
		assert.Equal(t, "**** **** **** 4444", got)
	}
	dec.AssertNumberOfCalls(t, "Decrypt", 1)

	r.Forget(ctx, card)
	_, err := r.Masked(ctx, card)
	require.NoError(t, err)
	dec.AssertNumberOfCalls(t, "Decrypt", 2)
}

func TestResolver_WithRealCodec(t *testing.T) {
	key, err := cardcrypto.GenerateKey()
	require.NoError(t, err)
	codec, err := cardcrypto.NewCodec(key)
	require.NoError(t, err)

	ct, err := codec.Encrypt("5555 5555 5555 4444")
	require.NoError(t, err)

	got, err := NewResolver(codec, nil, quietLogger()).Masked(context.Background(), &models.Card{ID: uuid.New(), EncryptedPAN: ct})
	require.NoError(t, err)
	assert.Equal(t, "**** **** **** 4444", got)
}

func TestResolver_RewrittenCiphertextIsDecryptedAgain(t *testing.T) {
	ctx := context.Background()
	key, err := cardcrypto.GenerateKey()
	require.NoError(t, err)
	codec, err := cardcrypto.NewCodec(key)
	require.NoError(t, err)

	ct, err := codec.Encrypt("4111111111111111")
	require.NoError(t, err)

	r := NewResolver(codec, cache.NewMemoryStore(time.Hour), quietLogger())
	card := &models.Card{ID: uuid.New(), EncryptedPAN: ct}

	got, err := r.Masked(ctx, card)
	require.NoError(t, err)
	assert.Equal(t, "**** **** **** 1111", got)

	raw, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	card.EncryptedPAN = base64.StdEncoding.EncodeToString(raw)

	got, err = r.Masked(ctx, card)
	assert.ErrorIs(t, err, apperrors.ErrCryptoFailure)
	assert.Empty(t, got)
}

type slowStore struct {
	cache.Store
}

func (s slowStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func (s slowStore) Set(ctx context.Context, key string, value interface{}) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestResolver_SlowCacheFallsThrough(t *testing.T) {
	dec := new(MockDecrypter)
	dec.On("Decrypt", "ct").Return("1111222233334444", nil).Once()

	r := NewResolver(dec, slowStore{}, quietLogger())

	start := time.Now()
	got, err := r.Masked(context.Background(), &models.Card{ID: uuid.New(), EncryptedPAN: "ct"})
	require.NoError(t, err)
	assert.Equal(t, "**** **** **** 4444", got)
	assert.Less(t, time.Since(start), time.Second)
	dec.AssertExpectations(t)
}
