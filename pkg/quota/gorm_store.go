package quota

import (
	"errors"
	"time"

	"querya_backend/internal/model"

	"gorm.io/gorm"
)

// GormStore backs the enforcer with the shared Postgres database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) SubscriptionByUser(userID uint) (*model.Subscription, error) {
	var sub model.Subscription
	if err := s.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s *GormStore) CountQueriesSince(userID uint, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&model.QueryLogEntry{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (s *GormStore) InsertQueryLog(entry *model.QueryLogEntry) error {
	return s.db.Create(entry).Error
}
