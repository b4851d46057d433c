package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferAccepted  TransferStatus = "accepted"
	TransferRejected  TransferStatus = "rejected"
	TransferCancelled TransferStatus = "cancelled"
)

// IsResponse reports whether s is one of the terminal states a response may set.
func (s TransferStatus) IsResponse() bool {
	return s == TransferAccepted || s == TransferRejected || s == TransferCancelled
}

// swagger:model domain.TransferRequest
type TransferRequest struct {
	ID                  uuid.UUID      `json:"id"`
	BikeID              uuid.UUID      `json:"bikeId"`
	BikeSerialNumber    string         `json:"bikeSerialNumber"`
	BikeBrand           string         `json:"bikeBrand"`
	BikeModel           string         `json:"bikeModel"`
	FromOwnerID         string         `json:"fromOwnerId"`
	FromOwnerEmail      string         `json:"fromOwnerEmail"`
	ToUserEmail         string         `json:"toUserEmail"`
	Status              TransferStatus `json:"status"`
	RequestedAt         time.Time      `json:"requestedAt"`
	ResolvedAt          *time.Time     `json:"resolvedAt"`
	TransferDocumentURL *string        `json:"transferDocumentUrl"`
}

// FoldEmail returns the canonical form used to store and compare recipient emails.
func FoldEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// NewTransferRequest builds a pending request for bike from its current owner.
func NewTransferRequest(bike *Bike, senderEmail, recipientEmail string, documentURL *string, now time.Time) *TransferRequest {
	return &TransferRequest{
		ID:                  uuid.New(),
		BikeID:              bike.ID,
		BikeSerialNumber:    bike.SerialNumber,
		BikeBrand:           bike.Brand,
		BikeModel:           bike.Model,
		FromOwnerID:         bike.OwnerID,
		FromOwnerEmail:      senderEmail,
		ToUserEmail:         FoldEmail(recipientEmail),
		Status:              TransferPending,
		RequestedAt:         now,
		TransferDocumentURL: documentURL,
	}
}

func (t *TransferRequest) IsSender(caller *TokenPayload) bool {
	return caller != nil && caller.UserID != "" && caller.UserID == t.FromOwnerID
}

func (t *TransferRequest) IsRecipient(caller *TokenPayload) bool {
	return caller != nil && caller.Email != "" && FoldEmail(caller.Email) == t.ToUserEmail
}

// AuthorizeResponse checks who may apply action: the sender may only cancel,
// the recipient may only accept or reject.
func (t *TransferRequest) AuthorizeResponse(caller *TokenPayload, action TransferStatus) error {
	switch action {
	case TransferCancelled:
		if !t.IsSender(caller) {
			return ErrPermissionDenied("Solo quien envió la solicitud puede cancelarla.")
		}
	case TransferAccepted, TransferRejected:
		if !t.IsRecipient(caller) {
			return ErrPermissionDenied("Solo el destinatario puede aceptar o rechazar la solicitud.")
		}
	default:
		return ErrInvalidArgument("Acción no válida.")
	}
	return nil
}

// Resolve moves a pending request to its terminal state.
func (t *TransferRequest) Resolve(action TransferStatus, now time.Time) error {
	if !action.IsResponse() {
		return ErrInvalidArgument("Acción no válida.")
	}
	if t.Status != TransferPending {
		return ErrFailedPrecondition("La solicitud ya fue procesada.")
	}
	t.Status = action
	t.ResolvedAt = &now
	return nil
}

