package billing

import (
	"errors"

	"querya_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore backs the reconciler with the shared Postgres database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// UpsertByUserID creates or replaces the user's single subscription row.
// The unique index on user_id makes redelivered checkout events converge on
// the same final row.
func (s *GormStore) UpsertByUserID(sub *model.Subscription) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_customer_id", "stripe_subscription_id", "tier", "status", "updated_at",
		}),
	}).Create(sub).Error
}

func (s *GormStore) FindByCustomerID(customerID string) (*model.Subscription, error) {
	return s.findOne("stripe_customer_id = ?", customerID)
}

func (s *GormStore) FindBySubscriptionID(subscriptionID string) (*model.Subscription, error) {
	return s.findOne("stripe_subscription_id = ?", subscriptionID)
}

func (s *GormStore) Update(sub *model.Subscription) error {
	return s.db.Save(sub).Error
}

func (s *GormStore) findOne(query string, arg string) (*model.Subscription, error) {
	var sub model.Subscription
	if err := s.db.Where(query, arg).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}
