package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bankcards/internal/models"
	"bankcards/internal/repositories/cache"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserDirectory answers whether a user id refers to a known account.
type UserDirectory interface {
	UserExists(ctx context.Context, userID uint) (bool, error)
}

const userCacheExpiration = 10 * time.Minute

type userRepository struct {
	db     *gorm.DB
	cache  cache.Store
	logger *logrus.Logger
}

// NewUserRepository returns a UserDirectory backed by the users table.
// Positive lookups are cached; a missing user is always re-checked.
func NewUserRepository(db *gorm.DB, cacheStore cache.Store, logger *logrus.Logger) UserDirectory {
	return &userRepository{
		db:     db,
		cache:  cacheStore,
		logger: logger,
	}
}

func (r *userRepository) UserExists(ctx context.Context, userID uint) (bool, error) {
	key := cache.GenerateKey("user", "exists", userID)
	if r.cache != nil {
		var exists bool
		found, err := r.cache.Get(ctx, key, &exists)
		if err != nil {
			r.logger.WithError(err).WithField("user_id", userID).Warn("user cache lookup failed")
		} else if found && exists {
			return true, nil
		}
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	if r.cache != nil {
		if err := r.cache.SetWithTTL(ctx, key, true, userCacheExpiration); err != nil {
			r.logger.WithError(err).WithField("user_id", userID).Warn("failed to cache user")
		}
	}
	return true, nil
}

// EnsureUser inserts user unless a row with the same email already exists,
// in which case user is filled from that row. It reports whether a row was
// created.
func EnsureUser(ctx context.Context, db *gorm.DB, user *models.User) (bool, error) {
	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		*user = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	return true, nil
}

// MemoryUserDirectory is a fixed set of known user ids.
type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[uint]struct{}
}

func NewMemoryUserDirectory(ids ...uint) *MemoryUserDirectory {
	d := &MemoryUserDirectory{users: make(map[uint]struct{}, len(ids))}
	d.Add(ids...)
	return d
}

func (d *MemoryUserDirectory) Add(ids ...uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		d.users[id] = struct{}{}
	}
}

func (d *MemoryUserDirectory) UserExists(_ context.Context, userID uint) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[userID]
	return ok, nil
}
