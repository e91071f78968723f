// Package masking turns stored card ciphertext into display-safe masked
// numbers. Plaintext PANs never leave this package.
package masking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"bankcards/internal/models"
	"bankcards/internal/repositories/cache"
	"bankcards/internal/utils/cardcrypto"

	"github.com/sirupsen/logrus"
)

// Decrypter opens stored PAN ciphertext.
type Decrypter interface {
	Decrypt(encoded string) (string, error)
}

// Resolver returns the masked PAN of a card.
type Resolver interface {
	Masked(ctx context.Context, card *models.Card) (string, error)
	Forget(ctx context.Context, card *models.Card)
}

// CacheTimeout bounds each cache round trip. A slow cache falls through to
// decryption instead of holding up the caller.
const CacheTimeout = 50 * time.Millisecond

type resolver struct {
	codec  Decrypter
	cache  cache.Store
	logger *logrus.Logger
}

// NewResolver builds a Resolver. cacheStore may be nil to disable caching.
// Entries are keyed by the card id and a digest of its stored ciphertext,
// so a rewritten ciphertext never matches an earlier entry and is decrypted
// again.
func NewResolver(codec Decrypter, cacheStore cache.Store, logger *logrus.Logger) Resolver {
	if codec == nil {
		panic("codec is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &resolver{
		codec:  codec,
		cache:  cacheStore,
		logger: logger,
	}
}

func cacheKey(card *models.Card) string {
	sum := sha256.Sum256([]byte(card.EncryptedPAN))
	return cache.GenerateKey("card", "masked", card.ID.String()+":"+hex.EncodeToString(sum[:8]))
}

func (r *resolver) Masked(ctx context.Context, card *models.Card) (string, error) {
	key := cacheKey(card)

	if r.cache != nil {
		var masked string
		getCtx, cancel := context.WithTimeout(ctx, CacheTimeout)
		found, err := r.cache.Get(getCtx, key, &masked)
		cancel()
		if err != nil {
			r.logger.WithError(err).WithField("card_id", card.ID).Warn("masked pan cache lookup failed")
		} else if found {
			return masked, nil
		}
	}

	pan, err := r.codec.Decrypt(card.EncryptedPAN)
	if err != nil {
		return "", err
	}
	masked := cardcrypto.Mask(pan)

	if r.cache != nil {
		setCtx, cancel := context.WithTimeout(ctx, CacheTimeout)
		err := r.cache.Set(setCtx, key, masked)
		cancel()
		if err != nil {
			r.logger.WithError(err).WithField("card_id", card.ID).Warn("failed to cache masked pan")
		}
	}
	return masked, nil
}

func (r *resolver) Forget(ctx context.Context, card *models.Card) {
	if r.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, CacheTimeout)
	defer cancel()
	if err := r.cache.Delete(ctx, cacheKey(card)); err != nil {
		r.logger.WithError(err).WithField("card_id", card.ID).Warn("failed to evict masked pan")
	}
}
