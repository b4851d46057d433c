package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const profileColumns = `id, role, first_name, last_name, email, phone, organization_name,
	registered_by_shop_id, referrer_id, referral_count, created_at, updated_at`

type profileRow struct {
	ID                 string         `db:"id"`
	Role               string         `db:"role"`
	FirstName          string         `db:"first_name"`
	LastName           string         `db:"last_name"`
	Email              string         `db:"email"`
	Phone              string         `db:"phone"`
	OrganizationName   sql.NullString `db:"organization_name"`
	RegisteredByShopID sql.NullString `db:"registered_by_shop_id"`
	ReferrerID         sql.NullString `db:"referrer_id"`
	ReferralCount      int            `db:"referral_count"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (row *profileRow) toDomain() *domain.UserProfile {
	return &domain.UserProfile{
		ID:                 row.ID,
		Role:               domain.UserRole(row.Role),
		FirstName:          row.FirstName,
		LastName:           row.LastName,
		Email:              row.Email,
		Phone:              row.Phone,
		OrganizationName:   nullString(row.OrganizationName),
		RegisteredByShopID: nullString(row.RegisteredByShopID),
		ReferrerID:         nullString(row.ReferrerID),
		ReferralCount:      row.ReferralCount,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func getProfile(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*domain.UserProfile, error) {
	var row profileRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func selectProfiles(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]*domain.UserProfile, error) {
	var rows []profileRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, err
	}
	profiles := make([]*domain.UserProfile, 0, len(rows))
	for i := range rows {
		profiles = append(profiles, rows[i].toDomain())
	}
	return profiles, nil
}

type ProfileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) CreateProfile(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	query := `INSERT INTO profiles (id, role, first_name, last_name, email, phone, organization_name,
		registered_by_shop_id, referrer_id, referral_count, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING ` + profileColumns

	created, err := getProfile(ctx, r.db, query,
		profile.ID,
		string(profile.Role),
		profile.FirstName,
		profile.LastName,
		profile.Email,
		profile.Phone,
		profile.OrganizationName,
		profile.RegisteredByShopID,
		profile.ReferrerID,
		profile.ReferralCount,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "Perfil")
	}
	return created, nil
}

func (r *ProfileRepository) GetProfileByID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := getProfile(ctx, r.db, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return nil, translateError(err, "Perfil")
	}
	return profile, nil
}

func (r *ProfileRepository) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.UserProfile, error) {
	query := `UPDATE profiles
		SET
			first_name = COALESCE($1, first_name),
			last_name = COALESCE($2, last_name),
			phone = COALESCE($3, phone),
			organization_name = COALESCE($4, organization_name),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
		RETURNING ` + profileColumns

	profile, err := getProfile(ctx, r.db, query,
		update.FirstName,
		update.LastName,
		update.Phone,
		update.OrganizationName,
		userID,
	)
	if err != nil {
		return nil, translateError(err, "Perfil")
	}
	return profile, nil
}

func (r *ProfileRepository) UpdateRole(ctx context.Context, userID string, role domain.UserRole) (*domain.UserProfile, error) {
	profile, err := getProfile(ctx, r.db,
		`UPDATE profiles SET role = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 RETURNING `+profileColumns,
		string(role), userID,
	)
	if err != nil {
		return nil, translateError(err, "Perfil")
	}
	return profile, nil
}

func (r *ProfileRepository) IncrementReferralCount(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET referral_count = referral_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		userID,
	)
	if err != nil {
		return translateError(err, "Perfil")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "Perfil")
	}
	if rowsAffected == 0 {
		return translateError(sql.ErrNoRows, "Perfil")
	}
	return nil
}

// ListProfiles pages through profiles, newest first. An empty role matches all.
func (r *ProfileRepository) ListProfiles(ctx context.Context, role domain.UserRole, limit, offset int) ([]*domain.UserProfile, error) {
	profiles, err := selectProfiles(ctx, r.db,
		`SELECT `+profileColumns+` FROM profiles
		WHERE ($1 = '' OR role = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		string(role), limit, offset,
	)
	if err != nil {
		return nil, translateError(err, "Perfil")
	}
	return profiles, nil
}

func (r *ProfileRepository) ListAttributedProfiles(ctx context.Context, attributionID string) ([]*domain.UserProfile, error) {
	profiles, err := selectProfiles(ctx, r.db,
		`SELECT `+profileColumns+` FROM profiles
		WHERE registered_by_shop_id = $1 OR referrer_id = $1`,
		attributionID,
	)
	if err != nil {
		return nil, translateError(err, "Perfil")
	}
	return profiles, nil
}

func (r *ProfileRepository) DeleteAccount(ctx context.Context, userID string) ([]uuid.UUID, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, translateError(err, "Perfil")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return nil, translateError(err, "Perfil")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, translateError(err, "Perfil")
	}
	if rowsAffected == 0 {
		return nil, translateError(sql.ErrNoRows, "Perfil")
	}

	bikeIDs := []uuid.UUID{}
	if err := tx.SelectContext(ctx, &bikeIDs, `DELETE FROM bikes WHERE owner_id = $1 RETURNING id`, userID); err != nil {
		return nil, translateError(err, "Bicicleta")
	}

	if err := tx.Commit(); err != nil {
		return nil, translateError(err, "Perfil")
	}
	return bikeIDs, nil
}
