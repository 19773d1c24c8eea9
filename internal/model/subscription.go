package model

import "gorm.io/gorm"

// Subscription is the single billing record per user. Rows are upserted by
// the billing reconciler and never hard-deleted; cancellation is a status
// transition.
type Subscription struct {
	gorm.Model
	UserID               uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	StripeCustomerID     string `json:"stripe_customer_id" gorm:"index"`
	StripeSubscriptionID string `json:"stripe_subscription_id" gorm:"index"`
	Tier                 string `json:"tier" gorm:"default:'free'"`
	Status               string `json:"status" gorm:"default:'active'"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
