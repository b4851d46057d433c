package domain

import (
	"sort"
	"time"
)

// DateRange is an inclusive, optionally open-ended time window.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// swagger:model domain.AttributionStats
type AttributionStats struct {
	AttributionID    string     `json:"attributionId"`
	From             *time.Time `json:"from"`
	To               *time.Time `json:"to"`
	AttributedUsers  int        `json:"attributedUsers"`
	UsersRegistered  int        `json:"usersRegistered"`
	BikesRegistered  int        `json:"bikesRegistered"`
	BikesStolen      int        `json:"bikesStolen"`
	BikesTransferred int        `json:"bikesTransferred"`
	BikesRecovered   int        `json:"bikesRecovered"`
}

// AggregateAttribution computes registration and lifecycle counts for the users
// attributed to attributionID and the bikes they own.
func AggregateAttribution(attributionID string, users []*UserProfile, bikes []*Bike, r DateRange) *AttributionStats {
	stats := &AttributionStats{
		AttributionID:   attributionID,
		From:            r.From,
		To:              r.To,
		AttributedUsers: len(users),
	}

	owners := make(map[string]struct{}, len(users))
	for _, u := range users {
		owners[u.ID] = struct{}{}
		if r.Contains(u.CreatedAt) {
			stats.UsersRegistered++
		}
	}

	for _, bike := range bikes {
		_, owned := owners[bike.OwnerID]
		byShop := bike.RegisteredByShopID != nil && *bike.RegisteredByShopID == attributionID
		if !owned && !byShop {
			continue
		}
		if r.Contains(bike.CreatedAt) {
			stats.BikesRegistered++
		}
		stolen, transferred, recovered := countHistory(bike.StatusHistory, r)
		stats.BikesStolen += stolen
		stats.BikesTransferred += transferred
		stats.BikesRecovered += recovered
	}
	return stats
}

// countHistory walks the history in chronological order. A recovery is an En Regla
// entry that follows a Robada entry with no transfer in between.
func countHistory(history []StatusHistoryEntry, r DateRange) (stolen, transferred, recovered int) {
	entries := make([]StatusHistoryEntry, len(history))
	copy(entries, history)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	wasStolen := false
	for _, e := range entries {
		switch e.Status {
		case StatusStolen:
			if r.Contains(e.Timestamp) {
				stolen++
			}
			wasStolen = true
		case StatusTransferred:
			if r.Contains(e.Timestamp) {
				transferred++
			}
			wasStolen = false
		case StatusActive:
			if wasStolen && r.Contains(e.Timestamp) {
				recovered++
			}
			wasStolen = false
		}
	}
	return stolen, transferred, recovered
}
