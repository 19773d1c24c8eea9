// Package quota enforces the free-tier daily query cap. Pro subscribers
// bypass the cap entirely; everyone else gets a fixed number of queries per
// local calendar day, counted against the append-only query log.
package quota

import (
	"errors"
	"fmt"
	"log"
	"time"

	"querya_backend/internal/model"
	"querya_backend/pkg/subscription"

	"gorm.io/datatypes"
)

var (
	ErrUnauthenticated = errors.New("quota: no authenticated user")
	ErrQuotaExceeded   = errors.New("quota: daily query limit exceeded")
)

// Store is the persistence surface the enforcer needs. The production
// implementation is backed by GORM; tests supply a fake.
type Store interface {
	SubscriptionByUser(userID uint) (*model.Subscription, error)
	CountQueriesSince(userID uint, since time.Time) (int64, error)
	InsertQueryLog(entry *model.QueryLogEntry) error
}

type Enforcer struct {
	store      Store
	dailyLimit int
	now        func() time.Time
}

func NewEnforcer(store Store, dailyLimit int) *Enforcer {
	return &Enforcer{
		store:      store,
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// CheckAndConsume decides whether the user may issue another query today and,
// if so, records the attempt. A nil return means the query was admitted and
// exactly one log row was appended. Denied or failed calls append nothing.
//
// The check is deliberately non-transactional: two concurrent calls can both
// read the same pre-insert count and both be admitted, overshooting the cap
// by up to the concurrency level. The cap is best-effort.
func (e *Enforcer) CheckAndConsume(userID uint, queryDetails datatypes.JSON) error {
	if userID == 0 {
		return ErrUnauthenticated
	}

	sub, err := e.store.SubscriptionByUser(userID)
	if err != nil {
		// No row means free tier; a real read failure fails closed below.
		sub = nil
	}

	if sub != nil && subscription.IsEntitled(subscription.Tier(sub.Tier), subscription.Status(sub.Status)) {
		return e.track(userID, queryDetails)
	}

	midnight := e.startOfToday()
	count, err := e.store.CountQueriesSince(userID, midnight)
	if err != nil {
		// Fail closed: never hand out unmetered queries while the store
		// is unreachable.
		log.Printf("quota: count failed for user %d, denying: %v", userID, err)
		return ErrQuotaExceeded
	}

	if count >= int64(e.dailyLimit) {
		return ErrQuotaExceeded
	}

	return e.track(userID, queryDetails)
}

// Remaining reports how many free-tier queries the user has left today.
// Pro subscribers always see -1 (unlimited).
func (e *Enforcer) Remaining(userID uint) (int, error) {
	if userID == 0 {
		return 0, ErrUnauthenticated
	}

	sub, err := e.store.SubscriptionByUser(userID)
	if err == nil && sub != nil && subscription.IsEntitled(subscription.Tier(sub.Tier), subscription.Status(sub.Status)) {
		return -1, nil
	}

	count, err := e.store.CountQueriesSince(userID, e.startOfToday())
	if err != nil {
		return 0, fmt.Errorf("quota: could not count queries: %w", err)
	}

	remaining := e.dailyLimit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (e *Enforcer) track(userID uint, queryDetails datatypes.JSON) error {
	entry := &model.QueryLogEntry{
		UserID:       userID,
		QueryDetails: queryDetails,
	}
	if err := e.store.InsertQueryLog(entry); err != nil {
		return fmt.Errorf("quota: could not record query: %w", err)
	}
	return nil
}

func (e *Enforcer) startOfToday() time.Time {
	now := e.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
