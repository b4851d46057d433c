package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2026, 1, d, 12, 0, 0, 0, time.UTC)
}

func TestAggregateAttribution(t *testing.T) {
	shopID := "shop-1"
	users := []*UserProfile{
		{ID: "u1", CreatedAt: day(2), RegisteredByShopID: &shopID},
		{ID: "u2", CreatedAt: day(20)},
	}

	stolenAndRecovered := &Bike{
		ID:        uuid.New(),
		OwnerID:   "u1",
		CreatedAt: day(3),
		StatusHistory: []StatusHistoryEntry{
			{Status: StatusActive, Timestamp: day(3)},
			{Status: StatusStolen, Timestamp: day(5)},
			{Status: StatusActive, Timestamp: day(7)},
		},
	}
	transferredAway := &Bike{
		ID:                 uuid.New(),
		OwnerID:            "someone-else",
		RegisteredByShopID: &shopID,
		CreatedAt:          day(4),
		StatusHistory: []StatusHistoryEntry{
			{Status: StatusTransferred, Timestamp: day(9)},
			{Status: StatusActive, Timestamp: day(4)},
		},
	}
	unrelated := &Bike{
		ID:            uuid.New(),
		OwnerID:       "stranger",
		CreatedAt:     day(4),
		StatusHistory: []StatusHistoryEntry{{Status: StatusStolen, Timestamp: day(6)}},
	}

	t.Run("unbounded range", func(t *testing.T) {
		stats := AggregateAttribution(shopID, users, []*Bike{stolenAndRecovered, transferredAway, unrelated}, DateRange{})

		assert.Equal(t, shopID, stats.AttributionID)
		assert.Equal(t, 2, stats.AttributedUsers)
		assert.Equal(t, 2, stats.UsersRegistered)
		assert.Equal(t, 2, stats.BikesRegistered)
		assert.Equal(t, 1, stats.BikesStolen)
		assert.Equal(t, 1, stats.BikesRecovered)
		assert.Equal(t, 1, stats.BikesTransferred)
	})

	t.Run("range limits every counter", func(t *testing.T) {
		from, to := day(1), day(6)
		stats := AggregateAttribution(shopID, users, []*Bike{stolenAndRecovered, transferredAway}, DateRange{From: &from, To: &to})

		assert.Equal(t, 2, stats.AttributedUsers)
		assert.Equal(t, 1, stats.UsersRegistered)
		assert.Equal(t, 2, stats.BikesRegistered)
		assert.Equal(t, 1, stats.BikesStolen)
		assert.Equal(t, 0, stats.BikesRecovered)
		assert.Equal(t, 0, stats.BikesTransferred)
	})
}

func TestDateRange_Contains(t *testing.T) {
	from, to := day(2), day(4)
	r := DateRange{From: &from, To: &to}

	assert.True(t, r.Contains(day(2)))
	assert.True(t, r.Contains(day(4)))
	assert.False(t, r.Contains(day(1)))
	assert.False(t, r.Contains(day(5)))
	assert.True(t, DateRange{}.Contains(day(30)))
}
