// Package repository implements persistence over the sqlite database.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blockedby/copygram/internal/models"
)

// Stats is the quota snapshot the copy loop checks before each message.
type Stats struct {
	IsOwner      bool
	IsVIP        bool
	MessageCount int64
	MessageLimit int64
}

// Privileged reports whether the quota does not apply.
func (s Stats) Privileged() bool {
	return s.IsOwner || s.IsVIP
}

// Exhausted reports whether a free user has used up the daily limit.
func (s Stats) Exhausted() bool {
	return !s.Privileged() && s.MessageCount >= s.MessageLimit
}

// Remaining returns how many messages a free user may still copy.
func (s Stats) Remaining() int64 {
	if s.Privileged() {
		return -1
	}
	if s.MessageCount >= s.MessageLimit {
		return 0
	}
	return s.MessageLimit - s.MessageCount
}

// UsersRepository handles users table operations and the free-limit setting.
type UsersRepository struct {
	db               *gorm.DB
	defaultFreeLimit int64
}

// NewUsersRepository creates a users repository.
// defaultFreeLimit applies when no runtime override is stored in settings.
func NewUsersRepository(db *gorm.DB, defaultFreeLimit int64) *UsersRepository {
	return &UsersRepository{db: db, defaultFreeLimit: defaultFreeLimit}
}

// GetOrCreate returns the user, inserting a fresh row on first contact.
func (r *UsersRepository) GetOrCreate(ctx context.Context, userID int64, username string) (*models.User, error) {
	user := &models.User{UserID: userID, Username: username}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(user).Error
	if err != nil {
		return nil, fmt.Errorf("create user %d: %w", userID, err)
	}

	if err := r.db.WithContext(ctx).First(user, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return user, nil
}

// Get returns the user or nil when unknown.
func (r *UsersRepository) Get(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return &user, nil
}

// Stats returns the quota snapshot for a user.
// Unknown users get the free-tier defaults with a zero count.
func (r *UsersRepository) Stats(ctx context.Context, userID int64) (Stats, error) {
	limit, err := r.FreeLimit(ctx)
	if err != nil {
		return Stats{}, err
	}

	user, err := r.Get(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	if user == nil {
		return Stats{MessageLimit: limit}, nil
	}

	return Stats{
		IsOwner:      user.IsOwner,
		IsVIP:        user.IsVIP,
		MessageCount: user.MessageCount,
		MessageLimit: limit,
	}, nil
}

// IncrementMessageCount adds n to the user's daily counter.
// The read-then-write in the copy loop is not atomic across concurrent jobs
// for the same user; the increment itself is.
func (r *UsersRepository) IncrementMessageCount(ctx context.Context, userID int64, n int64) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		UpdateColumn("message_count", gorm.Expr("message_count + ?", n)).Error
	if err != nil {
		return fmt.Errorf("increment message count for %d: %w", userID, err)
	}
	return nil
}

// SetVIPStatus promotes or demotes a user.
func (r *UsersRepository) SetVIPStatus(ctx context.Context, userID int64, vip bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("is_vip", vip)
	if res.Error != nil {
		return fmt.Errorf("set vip status for %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

// SetOwner marks a user as the bot owner.
func (r *UsersRepository) SetOwner(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("is_owner", true).Error
	if err != nil {
		return fmt.Errorf("set owner for %d: %w", userID, err)
	}
	return nil
}

// ResetMessageCount zeroes one user's daily counter.
func (r *UsersRepository) ResetMessageCount(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("message_count", 0).Error
	if err != nil {
		return fmt.Errorf("reset message count for %d: %w", userID, err)
	}
	return nil
}

// ResetAllFreeCounts zeroes the counters of every non-privileged user and
// returns how many rows were touched.
func (r *UsersRepository) ResetAllFreeCounts(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_vip = ? AND is_owner = ?", false, false).
		Update("message_count", 0)
	if res.Error != nil {
		return 0, fmt.Errorf("reset free counters: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// AllUserIDs returns every known user id, for broadcast.
func (r *UsersRepository) AllUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

// FreeLimit returns the free-tier daily limit, preferring the stored
// runtime override over the configured default.
func (r *UsersRepository) FreeLimit(ctx context.Context) (int64, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).First(&setting, "key = ?", models.SettingFreeLimit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.defaultFreeLimit, nil
		}
		return 0, fmt.Errorf("get free limit: %w", err)
	}

	limit, err := strconv.ParseInt(setting.Value, 10, 64)
	if err != nil || limit <= 0 {
		return r.defaultFreeLimit, nil
	}
	return limit, nil
}

// SetFreeLimit stores a new free-tier limit override.
func (r *UsersRepository) SetFreeLimit(ctx context.Context, limit int64) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	setting := models.Setting{
		Key:   models.SettingFreeLimit,
		Value: strconv.FormatInt(limit, 10),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&setting).Error
	if err != nil {
		return fmt.Errorf("set free limit: %w", err)
	}
	return nil
}
