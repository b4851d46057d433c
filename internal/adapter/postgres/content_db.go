package postgres

import (
	"context"
	"database/sql"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/jmoiron/sqlx"
)

type contentRow struct {
	Title        string         `db:"title"`
	Subtitle     string         `db:"subtitle"`
	Body         string         `db:"body"`
	HeroImageKey sql.NullString `db:"hero_image_key"`
	HeroImageURL sql.NullString `db:"hero_image_url"`
	UpdatedBy    sql.NullString `db:"updated_by"`
	UpdatedAt    sql.NullTime   `db:"updated_at"`
}

func (row *contentRow) toDomain() *domain.HomepageContent {
	content := &domain.HomepageContent{
		Title:        row.Title,
		Subtitle:     row.Subtitle,
		Body:         row.Body,
		HeroImageKey: nullString(row.HeroImageKey),
		HeroImageURL: nullString(row.HeroImageURL),
		UpdatedBy:    nullString(row.UpdatedBy),
	}
	if row.UpdatedAt.Valid {
		updatedAt := row.UpdatedAt.Time
		content.UpdatedAt = &updatedAt
	}
	return content
}

// ContentRepository stores the single homepage document in row id 1.
type ContentRepository struct {
	db *sqlx.DB
}

func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) GetHomepageContent(ctx context.Context) (*domain.HomepageContent, error) {
	var row contentRow
	err := r.db.GetContext(ctx, &row,
		`SELECT title, subtitle, body, hero_image_key, hero_image_url, updated_by, updated_at
		FROM homepage_content WHERE id = 1`,
	)
	if err != nil {
		return nil, translateError(err, "Contenido")
	}
	return row.toDomain(), nil
}

func (r *ContentRepository) SaveHomepageContent(ctx context.Context, content *domain.HomepageContent) (*domain.HomepageContent, error) {
	query := `INSERT INTO homepage_content (id, title, subtitle, body, hero_image_key, hero_image_url, updated_by, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			subtitle = EXCLUDED.subtitle,
			body = EXCLUDED.body,
			hero_image_key = EXCLUDED.hero_image_key,
			hero_image_url = EXCLUDED.hero_image_url,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING title, subtitle, body, hero_image_key, hero_image_url, updated_by, updated_at`

	var row contentRow
	err := r.db.GetContext(ctx, &row, query,
		content.Title,
		content.Subtitle,
		content.Body,
		content.HeroImageKey,
		content.HeroImageURL,
		content.UpdatedBy,
		content.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "Contenido")
	}
	return row.toDomain(), nil
}
