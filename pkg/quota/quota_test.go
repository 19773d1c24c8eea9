package quota

import (
	"errors"
	"testing"
	"time"

	"querya_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeStore struct {
	sub       *model.Subscription
	subErr    error
	entries   []model.QueryLogEntry
	countErr  error
	insertErr error
}

func (s *fakeStore) SubscriptionByUser(userID uint) (*model.Subscription, error) {
	if s.subErr != nil {
		return nil, s.subErr
	}
	return s.sub, nil
}

func (s *fakeStore) CountQueriesSince(userID uint, since time.Time) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	var count int64
	for _, e := range s.entries {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) InsertQueryLog(entry *model.QueryLogEntry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, e)
	return nil
}

var details = datatypes.JSON([]byte(`{"q":"test"}`))

func proSubscription(status string) *model.Subscription {
	return &model.Subscription{UserID: 1, Tier: "pro", Status: status}
}

func TestFreeUserGetsThreeQueriesPerDay(t *testing.T) {
	store := &fakeStore{}
	e := NewEnforcer(store, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.CheckAndConsume(1, details), "call %d should be allowed", i+1)
	}
	assert.Len(t, store.entries, 3)

	err := e.CheckAndConsume(1, details)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Len(t, store.entries, 3, "denied call must not append a row")
}

func TestProUserBypassesQuota(t *testing.T) {
	for _, status := range []string{"active", "trialing"} {
		t.Run(status, func(t *testing.T) {
			store := &fakeStore{sub: proSubscription(status)}
			e := NewEnforcer(store, 3)

			for i := 0; i < 10; i++ {
				require.NoError(t, e.CheckAndConsume(1, details))
			}
			assert.Len(t, store.entries, 10)
		})
	}
}

func TestProUserWithLapsedStatusIsMetered(t *testing.T) {
	for _, status := range []string{"past_due", "canceled", "unpaid", "incomplete"} {
		t.Run(status, func(t *testing.T) {
			store := &fakeStore{sub: proSubscription(status)}
			e := NewEnforcer(store, 3)

			for i := 0; i < 3; i++ {
				require.NoError(t, e.CheckAndConsume(1, details))
			}
			assert.ErrorIs(t, e.CheckAndConsume(1, details), ErrQuotaExceeded)
		})
	}
}

func TestMissingIdentityIsRejected(t *testing.T) {
	e := NewEnforcer(&fakeStore{}, 3)
	assert.ErrorIs(t, e.CheckAndConsume(0, details), ErrUnauthenticated)
}

func TestCountFailureFailsClosed(t *testing.T) {
	store := &fakeStore{countErr: errors.New("connection refused")}
	e := NewEnforcer(store, 3)

	err := e.CheckAndConsume(1, details)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Empty(t, store.entries)
}

func TestInsertFailureSurfaces(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("connection refused")}
	e := NewEnforcer(store, 3)

	err := e.CheckAndConsume(1, details)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrQuotaExceeded)
}

func TestYesterdaysQueriesDoNotCount(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.Local)
	store := &fakeStore{}
	for i := 0; i < 3; i++ {
		entry := model.QueryLogEntry{UserID: 1}
		entry.CreatedAt = now.Add(-20 * time.Hour) // before local midnight
		store.entries = append(store.entries, entry)
	}

	e := NewEnforcer(store, 3)
	e.now = func() time.Time { return now }

	require.NoError(t, e.CheckAndConsume(1, details))
}

func TestRemaining(t *testing.T) {
	store := &fakeStore{}
	e := NewEnforcer(store, 3)

	remaining, err := e.Remaining(1)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)

	require.NoError(t, e.CheckAndConsume(1, details))
	remaining, err = e.Remaining(1)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestRemainingIsUnlimitedForProUsers(t *testing.T) {
	store := &fakeStore{sub: proSubscription("active")}
	e := NewEnforcer(store, 3)

	remaining, err := e.Remaining(1)
	require.NoError(t, err)
	assert.Equal(t, -1, remaining)
}

func TestRemainingNeverGoesNegative(t *testing.T) {
	store := &fakeStore{}
	e := NewEnforcer(store, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.CheckAndConsume(1, details))
	}
	// Simulate overshoot from concurrent admissions.
	store.entries = append(store.entries, model.QueryLogEntry{UserID: 1, QueryDetails: details})
	store.entries[3].CreatedAt = time.Now()

	remaining, err := e.Remaining(1)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}
