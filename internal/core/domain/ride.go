package domain

import (
	"time"

	"github.com/google/uuid"
)

type RideDifficulty string

const (
	RideEasy   RideDifficulty = "easy"
	RideMedium RideDifficulty = "medium"
	RideHard   RideDifficulty = "hard"
)

// swagger:model domain.Ride
type Ride struct {
	ID           uuid.UUID      `json:"id"`
	OrganizerID  string         `json:"organizerId" validate:"required"`
	Title        string         `json:"title" validate:"required,max=150"`
	Description  string         `json:"description,omitempty" validate:"max=4000"`
	MeetingPoint string         `json:"meetingPoint,omitempty" validate:"max=300"`
	StartsAt     time.Time      `json:"startsAt" validate:"required"`
	DistanceKm   float64        `json:"distanceKm" validate:"min=0,max=1000"`
	Difficulty   RideDifficulty `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (r *Ride) IsUpcoming(now time.Time) bool {
	return !r.StartsAt.Before(now)
}

func (r *Ride) IsOrganizedBy(userID string) bool {
	return userID != "" && r.OrganizerID == userID
}

// CanOrganizeRides lists the roles allowed to publish community rides.
func CanOrganizeRides(role UserRole) bool {
	return role == BikeShop || role == NGO || role == Admin
}
