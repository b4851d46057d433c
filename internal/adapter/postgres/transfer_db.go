package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const transferColumns = `id, bike_id, bike_serial_number, bike_brand, bike_model, from_owner_id,
	from_owner_email, to_user_email, status, requested_at, resolved_at, transfer_document_url`

type transferRow struct {
	ID                  uuid.UUID      `db:"id"`
	BikeID              uuid.UUID      `db:"bike_id"`
	BikeSerialNumber    string         `db:"bike_serial_number"`
	BikeBrand           string         `db:"bike_brand"`
	BikeModel           string         `db:"bike_model"`
	FromOwnerID         string         `db:"from_owner_id"`
	FromOwnerEmail      string         `db:"from_owner_email"`
	ToUserEmail         string         `db:"to_user_email"`
	Status              string         `db:"status"`
	RequestedAt         time.Time      `db:"requested_at"`
	ResolvedAt          sql.NullTime   `db:"resolved_at"`
	TransferDocumentURL sql.NullString `db:"transfer_document_url"`
}

func (row *transferRow) toDomain() *domain.TransferRequest {
	req := &domain.TransferRequest{
		ID:                  row.ID,
		BikeID:              row.BikeID,
		BikeSerialNumber:    row.BikeSerialNumber,
		BikeBrand:           row.BikeBrand,
		BikeModel:           row.BikeModel,
		FromOwnerID:         row.FromOwnerID,
		FromOwnerEmail:      row.FromOwnerEmail,
		ToUserEmail:         row.ToUserEmail,
		Status:              domain.TransferStatus(row.Status),
		RequestedAt:         row.RequestedAt,
		TransferDocumentURL: nullString(row.TransferDocumentURL),
	}
	if row.ResolvedAt.Valid {
		resolved := row.ResolvedAt.Time
		req.ResolvedAt = &resolved
	}
	return req
}

func selectTransfers(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]*domain.TransferRequest, error) {
	var rows []transferRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, err
	}
	requests := make([]*domain.TransferRequest, 0, len(rows))
	for i := range rows {
		requests = append(requests, rows[i].toDomain())
	}
	return requests, nil
}

type TransferRepository struct {
	db *sqlx.DB
}

func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) CreateTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.TransferRequest, error) {
	query := `INSERT INTO transfer_requests (id, bike_id, bike_serial_number, bike_brand, bike_model,
		from_owner_id, from_owner_email, to_user_email, status, requested_at, resolved_at, transfer_document_url)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.BikeID,
		req.BikeSerialNumber,
		req.BikeBrand,
		req.BikeModel,
		req.FromOwnerID,
		req.FromOwnerEmail,
		req.ToUserEmail,
		string(req.Status),
		req.RequestedAt,
		req.ResolvedAt,
		req.TransferDocumentURL,
	)
	if err != nil {
		return nil, translateError(err, "Solicitud de transferencia")
	}
	return req, nil
}

func (r *TransferRepository) GetTransferByID(ctx context.Context, transferID uuid.UUID) (*domain.TransferRequest, error) {
	var row transferRow
	err := r.db.GetContext(ctx, &row, `SELECT `+transferColumns+` FROM transfer_requests WHERE id = $1`, transferID)
	if err != nil {
		return nil, translateError(err, "Solicitud de transferencia")
	}
	return row.toDomain(), nil
}

func (r *TransferRepository) HasPendingTransfer(ctx context.Context, bikeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM transfer_requests WHERE bike_id = $1 AND status = $2)`,
		bikeID, string(domain.TransferPending),
	)
	if err != nil {
		return false, translateError(err, "Solicitud de transferencia")
	}
	return exists, nil
}

func (r *TransferRepository) GetTransfersBySender(ctx context.Context, senderID string) ([]*domain.TransferRequest, error) {
	requests, err := selectTransfers(ctx, r.db,
		`SELECT `+transferColumns+` FROM transfer_requests WHERE from_owner_id = $1 ORDER BY requested_at DESC`,
		senderID,
	)
	if err != nil {
		return nil, translateError(err, "Solicitud de transferencia")
	}
	return requests, nil
}

// GetTransfersByRecipientEmail expects email already case-folded.
func (r *TransferRepository) GetTransfersByRecipientEmail(ctx context.Context, email string) ([]*domain.TransferRequest, error) {
	requests, err := selectTransfers(ctx, r.db,
		`SELECT `+transferColumns+` FROM transfer_requests WHERE to_user_email = $1 ORDER BY requested_at DESC`,
		email,
	)
	if err != nil {
		return nil, translateError(err, "Solicitud de transferencia")
	}
	return requests, nil
}

func (r *TransferRepository) RunInTx(ctx context.Context, fn func(tx ports.TransferTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateError(err, "Solicitud de transferencia")
	}
	defer tx.Rollback()

	if err := fn(&transferTx{tx: tx}); err != nil {
		return translateError(err, "Solicitud de transferencia")
	}
	return translateError(tx.Commit(), "Solicitud de transferencia")
}

type transferTx struct {
	tx *sqlx.Tx
}

func (t *transferTx) GetTransferForUpdate(ctx context.Context, transferID uuid.UUID) (*domain.TransferRequest, error) {
	var row transferRow
	err := t.tx.GetContext(ctx, &row,
		`SELECT `+transferColumns+` FROM transfer_requests WHERE id = $1 FOR UPDATE`,
		transferID,
	)
	if err != nil {
		return nil, translateError(err, "Solicitud de transferencia")
	}
	return row.toDomain(), nil
}

func (t *transferTx) GetBikeForUpdate(ctx context.Context, bikeID uuid.UUID) (*domain.Bike, error) {
	bike, err := getBike(ctx, t.tx, `SELECT `+bikeColumns+` FROM bikes WHERE id = $1 FOR UPDATE`, bikeID)
	if err != nil {
		return nil, translateError(err, "Bicicleta")
	}
	return bike, nil
}

func (t *transferTx) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := getProfile(ctx, t.tx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return nil, translateError(err, "Perfil")
	}
	return profile, nil
}

func (t *transferTx) SaveTransferResolution(ctx context.Context, req *domain.TransferRequest) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE transfer_requests SET status = $1, resolved_at = $2 WHERE id = $3`,
		string(req.Status), req.ResolvedAt, req.ID,
	)
	return translateError(err, "Solicitud de transferencia")
}

func (t *transferTx) SaveBikeOwnership(ctx context.Context, bike *domain.Bike, appended []domain.StatusHistoryEntry) error {
	theft, err := theftJSON(bike.TheftDetails)
	if err != nil {
		return translateError(err, "Bicicleta")
	}
	_, err = t.tx.ExecContext(ctx,
		`UPDATE bikes
		SET owner_id = $1, owner_first_name = $2, owner_last_name = $3, owner_email = $4, owner_phone = $5,
			status = $6, theft_details = $7::jsonb, updated_at = $8
		WHERE id = $9`,
		bike.OwnerID,
		bike.OwnerFirstName,
		bike.OwnerLastName,
		bike.OwnerEmail,
		bike.OwnerPhone,
		string(bike.Status),
		theft,
		bike.UpdatedAt,
		bike.ID,
	)
	if err != nil {
		return translateError(err, "Bicicleta")
	}
	return translateError(insertHistory(ctx, t.tx, bike.ID, appended), "Bicicleta")
}
