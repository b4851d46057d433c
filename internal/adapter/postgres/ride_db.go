package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type RideRepository struct {
	db *sqlx.DB
}

func NewRideRepository(db *sqlx.DB) *RideRepository {
	return &RideRepository{db: db}
}

func (r *RideRepository) CreateRide(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	query := `INSERT INTO rides (id, organizer_id, title, description, meeting_point, starts_at, distance_km, difficulty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		ride.ID,
		ride.OrganizerID,
		ride.Title,
		ride.Description,
		ride.MeetingPoint,
		ride.StartsAt,
		ride.DistanceKm,
		string(ride.Difficulty),
		ride.CreatedAt,
		ride.UpdatedAt,
	).Scan(
		&ride.ID,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "Rodada")
	}

	return ride, nil
}

func (r *RideRepository) GetRideByID(ctx context.Context, rideID uuid.UUID) (*domain.Ride, error) {
	query := `
		SELECT id, organizer_id, title, description, meeting_point, starts_at, distance_km, difficulty, created_at, updated_at
		FROM rides
		WHERE id = $1
	`

	var ride domain.Ride
	err := r.db.QueryRowContext(ctx, query, rideID).Scan(
		&ride.ID,
		&ride.OrganizerID,
		&ride.Title,
		&ride.Description,
		&ride.MeetingPoint,
		&ride.StartsAt,
		&ride.DistanceKm,
		&ride.Difficulty,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "Rodada")
	}

	return &ride, nil
}

func (r *RideRepository) GetRidesByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Ride, error) {
	query := `SELECT id, organizer_id, title, description, meeting_point, starts_at, distance_km, difficulty, created_at, updated_at
		FROM rides WHERE organizer_id = $1
		ORDER BY starts_at DESC`

	return r.queryRides(ctx, query, organizerID)
}

// GetUpcomingRides lists rides starting at or after from, soonest first.
func (r *RideRepository) GetUpcomingRides(ctx context.Context, from time.Time, limit int) ([]*domain.Ride, error) {
	query := `SELECT id, organizer_id, title, description, meeting_point, starts_at, distance_km, difficulty, created_at, updated_at
		FROM rides WHERE starts_at >= $1
		ORDER BY starts_at ASC
		LIMIT $2`

	return r.queryRides(ctx, query, from, limit)
}

func (r *RideRepository) queryRides(ctx context.Context, query string, args ...interface{}) ([]*domain.Ride, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, "Rodada")
	}
	defer rows.Close()

	rides := []*domain.Ride{}

	for rows.Next() {
		ride := &domain.Ride{}
		err := rows.Scan(
			&ride.ID,
			&ride.OrganizerID,
			&ride.Title,
			&ride.Description,
			&ride.MeetingPoint,
			&ride.StartsAt,
			&ride.DistanceKm,
			&ride.Difficulty,
			&ride.CreatedAt,
			&ride.UpdatedAt,
		)
		if err != nil {
			return nil, translateError(err, "Rodada")
		}
		rides = append(rides, ride)
	}

	if err = rows.Err(); err != nil {
		return nil, translateError(err, "Rodada")
	}

	return rides, nil
}

func (r *RideRepository) UpdateRide(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	query := `UPDATE rides
		SET
			title = $1,
			description = $2,
			meeting_point = $3,
			starts_at = $4,
			distance_km = $5,
			difficulty = $6,
			updated_at = $7
		WHERE id = $8
		RETURNING organizer_id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		ride.Title,
		ride.Description,
		ride.MeetingPoint,
		ride.StartsAt,
		ride.DistanceKm,
		string(ride.Difficulty),
		ride.UpdatedAt,
		ride.ID,
	).Scan(
		&ride.OrganizerID,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "Rodada")
	}

	return ride, nil
}

func (r *RideRepository) DeleteRide(ctx context.Context, rideID uuid.UUID) error {
	query := `DELETE FROM rides WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, rideID)
	if err != nil {
		return translateError(err, "Rodada")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "Rodada")
	}

	if rowsAffected == 0 {
		return translateError(sql.ErrNoRows, "Rodada")
	}

	return nil
}
