package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rideRowColumns = []string{
	"id", "organizer_id", "title", "description", "meeting_point", "starts_at",
	"distance_km", "difficulty", "created_at", "updated_at",
}

func newMockRideRepository(t *testing.T) (*RideRepository, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	return NewRideRepository(db), mock
}

func TestRideRepository_GetUpcomingRides(t *testing.T) {
	repo, mock := newMockRideRepository(t)
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	first, second := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM rides WHERE starts_at >= \$1 ORDER BY starts_at ASC LIMIT \$2`).
		WithArgs(from, 20).
		WillReturnRows(sqlmock.NewRows(rideRowColumns).
			AddRow(first.String(), "ngo-1", "Rodada nocturna", "", "Glorieta", from.Add(24*time.Hour), 12.5, "easy", from, from).
			AddRow(second.String(), "shop-1", "Subida al cerro", "Traer luces", "Taller", from.Add(48*time.Hour), 40.0, "hard", from, from))

	rides, err := repo.GetUpcomingRides(context.Background(), from, 20)
	require.NoError(t, err)
	require.Len(t, rides, 2)
	assert.Equal(t, first, rides[0].ID)
	assert.Equal(t, 12.5, rides[0].DistanceKm)
	assert.Equal(t, domain.RideDifficulty("hard"), rides[1].Difficulty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRideRepository_GetRidesByOrganizerIDEmpty(t *testing.T) {
	repo, mock := newMockRideRepository(t)

	mock.ExpectQuery(`FROM rides WHERE organizer_id = \$1`).
		WithArgs("ngo-1").
		WillReturnRows(sqlmock.NewRows(rideRowColumns))

	rides, err := repo.GetRidesByOrganizerID(context.Background(), "ngo-1")
	require.NoError(t, err)
	assert.NotNil(t, rides)
	assert.Empty(t, rides)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRideRepository_UpdateRide(t *testing.T) {
	repo, mock := newMockRideRepository(t)
	now := time.Now().UTC()
	created := now.Add(-time.Hour)
	ride := &domain.Ride{
		ID:          uuid.New(),
		Title:       "Rodada dominical",
		StartsAt:    now.Add(72 * time.Hour),
		DistanceKm:  25,
		Difficulty:  domain.RideDifficulty("medium"),
		OrganizerID: "someone-else",
		UpdatedAt:   now,
	}

	mock.ExpectQuery(`UPDATE rides SET (.+) WHERE id = \$8 RETURNING organizer_id, created_at, updated_at`).
		WithArgs("Rodada dominical", "", "", ride.StartsAt, 25.0, "medium", now, ride.ID).
		WillReturnRows(sqlmock.NewRows([]string{"organizer_id", "created_at", "updated_at"}).AddRow("ngo-1", created, now))

	updated, err := repo.UpdateRide(context.Background(), ride)
	require.NoError(t, err)
	assert.Equal(t, "ngo-1", updated.OrganizerID, "the stored organizer wins")
	assert.Equal(t, created, updated.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRideRepository_DeleteRide(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("deleted", func(t *testing.T) {
		repo, mock := newMockRideRepository(t)
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM rides WHERE id = $1`)).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.DeleteRide(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown ride", func(t *testing.T) {
		repo, mock := newMockRideRepository(t)
		mock.ExpectExec(`DELETE FROM rides`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeleteRide(ctx, id)
		assert.True(t, domain.IsKind(err, domain.KindNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
