package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const bikeColumns = `id, serial_number, brand, model, color, description, location, bike_type,
	owner_id, owner_first_name, owner_last_name, owner_email, owner_phone, registered_by_shop_id,
	status, theft_details, ownership_document_url, photo_urls, created_at, updated_at`

type bikeRow struct {
	ID                   uuid.UUID      `db:"id"`
	SerialNumber         string         `db:"serial_number"`
	Brand                string         `db:"brand"`
	Model                string         `db:"model"`
	Color                string         `db:"color"`
	Description          sql.NullString `db:"description"`
	Location             string         `db:"location"`
	BikeType             string         `db:"bike_type"`
	OwnerID              sql.NullString `db:"owner_id"`
	OwnerFirstName       string         `db:"owner_first_name"`
	OwnerLastName        string         `db:"owner_last_name"`
	OwnerEmail           string         `db:"owner_email"`
	OwnerPhone           string         `db:"owner_phone"`
	RegisteredByShopID   sql.NullString `db:"registered_by_shop_id"`
	Status               string         `db:"status"`
	TheftDetails         []byte         `db:"theft_details"`
	OwnershipDocumentURL sql.NullString `db:"ownership_document_url"`
	PhotoURLs            pq.StringArray `db:"photo_urls"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

type historyRow struct {
	BikeID              uuid.UUID      `db:"bike_id"`
	Status              string         `db:"status"`
	Notes               string         `db:"notes"`
	TransferDocumentURL sql.NullString `db:"transfer_document_url"`
	CreatedAt           time.Time      `db:"created_at"`
}

func (row *bikeRow) toDomain() (*domain.Bike, error) {
	bike := &domain.Bike{
		ID:                   row.ID,
		SerialNumber:         row.SerialNumber,
		Brand:                row.Brand,
		Model:                row.Model,
		Color:                row.Color,
		Description:          nullString(row.Description),
		Location:             row.Location,
		BikeType:             row.BikeType,
		OwnerID:              row.OwnerID.String,
		OwnerFirstName:       row.OwnerFirstName,
		OwnerLastName:        row.OwnerLastName,
		OwnerEmail:           row.OwnerEmail,
		OwnerPhone:           row.OwnerPhone,
		RegisteredByShopID:   nullString(row.RegisteredByShopID),
		Status:               domain.BikeStatus(row.Status),
		OwnershipDocumentURL: nullString(row.OwnershipDocumentURL),
		PhotoURLs:            []string(row.PhotoURLs),
		StatusHistory:        []domain.StatusHistoryEntry{},
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if bike.PhotoURLs == nil {
		bike.PhotoURLs = []string{}
	}
	if len(row.TheftDetails) > 0 {
		var details domain.TheftDetails
		if err := json.Unmarshal(row.TheftDetails, &details); err != nil {
			return nil, err
		}
		bike.TheftDetails = &details
	}
	return bike, nil
}

// theftJSON returns the JSONB parameter for details, nil when there are none.
func theftJSON(details *domain.TheftDetails) (interface{}, error) {
	if details == nil {
		return nil, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// selectBikes runs a bike query and attaches each bike's status history.
func selectBikes(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]*domain.Bike, error) {
	var rows []bikeRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*domain.Bike{}, nil
	}

	bikes := make([]*domain.Bike, 0, len(rows))
	byID := make(map[uuid.UUID]*domain.Bike, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		bike, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		bikes = append(bikes, bike)
		byID[bike.ID] = bike
		ids = append(ids, bike.ID)
	}

	var history []historyRow
	err := sqlx.SelectContext(ctx, q, &history,
		`SELECT bike_id, status, notes, transfer_document_url, created_at
		FROM bike_status_history
		WHERE bike_id = ANY($1::uuid[])
		ORDER BY bike_id, id`,
		pq.Array(uuidStrings(ids)),
	)
	if err != nil {
		return nil, err
	}
	for _, h := range history {
		bike, ok := byID[h.BikeID]
		if !ok {
			continue
		}
		bike.StatusHistory = append(bike.StatusHistory, domain.StatusHistoryEntry{
			Status:              domain.BikeStatus(h.Status),
			Timestamp:           h.CreatedAt,
			Notes:               h.Notes,
			TransferDocumentURL: nullString(h.TransferDocumentURL),
		})
	}
	return bikes, nil
}

func getBike(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*domain.Bike, error) {
	bikes, err := selectBikes(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	if len(bikes) == 0 {
		return nil, sql.ErrNoRows
	}
	return bikes[0], nil
}

func insertHistory(ctx context.Context, e sqlx.ExecerContext, bikeID uuid.UUID, entries []domain.StatusHistoryEntry) error {
	for _, entry := range entries {
		_, err := e.ExecContext(ctx,
			`INSERT INTO bike_status_history (bike_id, status, notes, transfer_document_url, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			bikeID, string(entry.Status), entry.Notes, entry.TransferDocumentURL, entry.Timestamp,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

type BikeRepository struct {
	db *sqlx.DB
}

func NewBikeRepository(db *sqlx.DB) *BikeRepository {
	return &BikeRepository{
		db,
	}
}

func (r *BikeRepository) CreateBike(ctx context.Context, bike *domain.Bike) (*domain.Bike, error) {
	theft, err := theftJSON(bike.TheftDetails)
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	defer tx.Rollback()

	query := `INSERT INTO bikes (id, serial_number, brand, model, color, description, location, bike_type,
		owner_id, owner_first_name, owner_last_name, owner_email, owner_phone, registered_by_shop_id,
		status, theft_details, ownership_document_url, photo_urls, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16::jsonb, $17, $18, $19, $20)`

	_, err = tx.ExecContext(ctx, query,
		bike.ID,
		bike.SerialNumber,
		bike.Brand,
		bike.Model,
		bike.Color,
		bike.Description,
		bike.Location,
		bike.BikeType,
		bike.OwnerID,
		bike.OwnerFirstName,
		bike.OwnerLastName,
		bike.OwnerEmail,
		bike.OwnerPhone,
		bike.RegisteredByShopID,
		string(bike.Status),
		theft,
		bike.OwnershipDocumentURL,
		pq.Array(bike.PhotoURLs),
		bike.CreatedAt,
		bike.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	if err := insertHistory(ctx, tx, bike.ID, bike.StatusHistory); err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	if err := tx.Commit(); err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	return bike, nil
}

func (r *BikeRepository) GetBikeByID(ctx context.Context, bikeID uuid.UUID) (*domain.Bike, error) {
	bike, err := getBike(ctx, r.db, `SELECT `+bikeColumns+` FROM bikes WHERE id = $1`, bikeID)
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	return bike, nil
}

// GetBikeBySerial returns the oldest bike with serial, since uniqueness is not enforced by the schema.
func (r *BikeRepository) GetBikeBySerial(ctx context.Context, serial string) (*domain.Bike, error) {
	bike, err := getBike(ctx, r.db,
		`SELECT `+bikeColumns+` FROM bikes WHERE serial_number = $1 ORDER BY created_at LIMIT 1`,
		serial,
	)
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	return bike, nil
}

func (r *BikeRepository) SerialExists(ctx context.Context, serial string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM bikes WHERE serial_number = $1 AND id <> $2)`,
		serial, excludeID,
	)
	if err != nil {
		return false, translateError(err, "Bicicleta")
	}
	return exists, nil
}

func (r *BikeRepository) GetBikesByOwnerID(ctx context.Context, ownerID string) ([]*domain.Bike, error) {
	bikes, err := selectBikes(ctx, r.db,
		`SELECT `+bikeColumns+` FROM bikes WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	return bikes, nil
}

func (r *BikeRepository) GetBikesByOwnerIDs(ctx context.Context, ownerIDs []string) ([]*domain.Bike, error) {
	if len(ownerIDs) == 0 {
		return []*domain.Bike{}, nil
	}
	bikes, err := selectBikes(ctx, r.db,
		`SELECT `+bikeColumns+` FROM bikes WHERE owner_id = ANY($1)`,
		pq.Array(ownerIDs),
	)
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	return bikes, nil
}

func (r *BikeRepository) UpdateBike(ctx context.Context, bikeID uuid.UUID, update domain.BikeUpdate) (*domain.Bike, error) {
	var photos interface{}
	if update.PhotoURLs != nil {
		photos = pq.Array(update.PhotoURLs)
	}

	query := `UPDATE bikes
		SET
			serial_number = COALESCE($1, serial_number),
			brand = COALESCE($2, brand),
			model = COALESCE($3, model),
			color = COALESCE($4, color),
			description = CASE WHEN $5::text IS NULL THEN description ELSE NULLIF($5::text, '') END,
			location = COALESCE($6, location),
			bike_type = COALESCE($7, bike_type),
			photo_urls = COALESCE($8, photo_urls),
			ownership_document_url = CASE WHEN $9::text IS NULL THEN ownership_document_url ELSE NULLIF($9::text, '') END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $10`

	result, err := r.db.ExecContext(ctx, query,
		update.SerialNumber,
		update.Brand,
		update.Model,
		update.Color,
		update.Description,
		update.Location,
		update.BikeType,
		photos,
		update.OwnershipDocumentURL,
		bikeID,
	)
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	if rowsAffected == 0 {
		return nil, translateError(sql.ErrNoRows, "Bicicleta")
	}

	return r.GetBikeByID(ctx, bikeID)
}

func (r *BikeRepository) SaveStatus(ctx context.Context, bike *domain.Bike, appended []domain.StatusHistoryEntry) error {
	theft, err := theftJSON(bike.TheftDetails)
	if err != nil {
		return translateError(err, "Bicicleta")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateError(err, "Bicicleta")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE bikes SET status = $1, theft_details = $2::jsonb, updated_at = $3 WHERE id = $4`,
		string(bike.Status), theft, bike.UpdatedAt, bike.ID,
	)
	if err != nil {
		return translateError(err, "Bicicleta")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "Bicicleta")
	}
	if rowsAffected == 0 {
		return translateError(sql.ErrNoRows, "Bicicleta")
	}
	if err := insertHistory(ctx, tx, bike.ID, appended); err != nil {
		return translateError(err, "Bicicleta")
	}
	return translateError(tx.Commit(), "Bicicleta")
}

// UpdateOwnerContact rewrites the denormalized owner fields and returns the ids it touched.
func (r *BikeRepository) UpdateOwnerContact(ctx context.Context, ownerID string, contact domain.OwnerContact) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.SelectContext(ctx, &ids,
		`UPDATE bikes
		SET owner_first_name = $1, owner_last_name = $2, owner_email = $3, owner_phone = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE owner_id = $5
		RETURNING id`,
		contact.FirstName, contact.LastName, contact.Email, contact.Phone, ownerID,
	)
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	return ids, nil
}
