package ports

import (
	"context"

	"github.com/sm8ta/webike_registry/internal/core/domain"

	"github.com/google/uuid"
)

type TransferRepository interface {
	CreateTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.TransferRequest, error)
	GetTransferByID(ctx context.Context, transferID uuid.UUID) (*domain.TransferRequest, error)
	HasPendingTransfer(ctx context.Context, bikeID uuid.UUID) (bool, error)
	GetTransfersBySender(ctx context.Context, senderID string) ([]*domain.TransferRequest, error)
	GetTransfersByRecipientEmail(ctx context.Context, email string) ([]*domain.TransferRequest, error)
	// RunInTx runs fn inside one database transaction. fn's error rolls it back.
	RunInTx(ctx context.Context, fn func(tx TransferTx) error) error
}

// TransferTx is the view of the stores available inside a transfer transaction.
// The Get*ForUpdate calls lock the row until the transaction ends.
type TransferTx interface {
	GetTransferForUpdate(ctx context.Context, transferID uuid.UUID) (*domain.TransferRequest, error)
	GetBikeForUpdate(ctx context.Context, bikeID uuid.UUID) (*domain.Bike, error)
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	SaveTransferResolution(ctx context.Context, req *domain.TransferRequest) error
	SaveBikeOwnership(ctx context.Context, bike *domain.Bike, appended []domain.StatusHistoryEntry) error
}
