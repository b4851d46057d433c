package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type TransferService struct {
	transferRepo ports.TransferRepository
	bikeRepo     ports.BikeRepository
	logger       ports.LoggerPort
	validate     *validator.Validate
	cache        ports.CachePort
	events       ports.EventPublisher
	now          func() time.Time
}

func NewTransferService(
	transferRepo ports.TransferRepository,
	bikeRepo ports.BikeRepository,
	logger ports.LoggerPort,
	validate *validator.Validate,
	cache ports.CachePort,
	events ports.EventPublisher,
) *TransferService {
	return &TransferService{
		transferRepo: transferRepo,
		bikeRepo:     bikeRepo,
		logger:       logger,
		validate:     validate,
		cache:        cache,
		events:       events,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type InitiateTransferInput struct {
	BikeID              string
	RecipientEmail      string
	TransferDocumentURL *string
}

func (s *TransferService) InitiateTransfer(ctx context.Context, caller *domain.TokenPayload, in InitiateTransferInput) (*domain.TransferRequest, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	recipient := strings.TrimSpace(in.RecipientEmail)
	if err := s.validate.Var(recipient, "required,email"); err != nil {
		return nil, domain.ErrInvalidArgument("El correo del destinatario no es válido.")
	}

	bikeUUID, err := parseID(in.BikeID, "bicicleta")
	if err != nil {
		return nil, err
	}
	bike, err := s.bikeRepo.GetBikeByID(ctx, bikeUUID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.ErrPermissionDenied("Solo el propietario puede transferir esta bicicleta.")
		}
		return nil, internalError(s.logger, "Failed to get bike", err, map[string]interface{}{
			"bike_id": in.BikeID,
			"user_id": caller.UserID,
		})
	}
	if !bike.IsOwnedBy(caller.UserID) {
		return nil, domain.ErrPermissionDenied("Solo el propietario puede transferir esta bicicleta.")
	}
	if bike.Status != domain.StatusActive {
		return nil, domain.ErrFailedPrecondition("Solo se pueden transferir bicicletas en estado " + string(domain.StatusActive) + ".")
	}

	senderEmail := caller.Email
	if senderEmail == "" {
		senderEmail = bike.OwnerEmail
	}
	if domain.FoldEmail(senderEmail) == domain.FoldEmail(recipient) {
		return nil, domain.ErrInvalidArgument("No puedes transferir una bicicleta a ti mismo.")
	}

	pending, err := s.transferRepo.HasPendingTransfer(ctx, bike.ID)
	if err != nil {
		return nil, internalError(s.logger, "Failed to check pending transfers", err, map[string]interface{}{
			"bike_id": in.BikeID,
			"user_id": caller.UserID,
		})
	}
	if pending {
		return nil, domain.ErrAlreadyExists("Ya existe una solicitud de transferencia pendiente para esta bicicleta.")
	}

	req := domain.NewTransferRequest(bike, senderEmail, recipient, in.TransferDocumentURL, s.now())
	created, err := s.transferRepo.CreateTransfer(ctx, req)
	if err != nil {
		return nil, internalError(s.logger, "Failed to create transfer request", err, map[string]interface{}{
			"bike_id": in.BikeID,
			"user_id": caller.UserID,
		})
	}

	s.logger.Info("Transfer request created", map[string]interface{}{
		"transfer_id": created.ID.String(),
		"bike_id":     created.BikeID.String(),
		"user_id":     caller.UserID,
	})

	publishEvent(ctx, s.events, s.logger, domain.NewEvent(domain.EventTransferRequested, caller.UserID, created.ID.String(), map[string]interface{}{
		"bikeId":      created.BikeID.String(),
		"toUserEmail": created.ToUserEmail,
	}))

	return created, nil
}

// RespondToTransfer resolves a pending request. The whole resolution, including the
// ownership change on accept, commits or rolls back as one transaction.
func (s *TransferService) RespondToTransfer(ctx context.Context, caller *domain.TokenPayload, transferID, action string) (*domain.TransferRequest, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	transferUUID, err := parseID(transferID, "solicitud")
	if err != nil {
		return nil, err
	}
	status := domain.TransferStatus(strings.ToLower(strings.TrimSpace(action)))
	if !status.IsResponse() {
		return nil, domain.ErrInvalidArgument("Acción no válida. Usa accepted, rejected o cancelled.")
	}

	var resolved *domain.TransferRequest
	var bikeID uuid.UUID
	err = s.transferRepo.RunInTx(ctx, func(tx ports.TransferTx) error {
		req, err := tx.GetTransferForUpdate(ctx, transferUUID)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return domain.ErrNotFound("La solicitud de transferencia no existe.")
			}
			return err
		}
		if err := req.AuthorizeResponse(caller, status); err != nil {
			return err
		}
		now := s.now()
		if err := req.Resolve(status, now); err != nil {
			return err
		}

		if status == domain.TransferAccepted {
			if err := s.completeTransfer(ctx, tx, caller, req, now); err != nil {
				return err
			}
			bikeID = req.BikeID
		}

		if err := tx.SaveTransferResolution(ctx, req); err != nil {
			return err
		}
		resolved = req
		return nil
	})
	if err != nil {
		return nil, internalError(s.logger, "Failed to respond to transfer request", err, map[string]interface{}{
			"transfer_id": transferID,
			"user_id":     caller.UserID,
			"action":      string(status),
		})
	}

	if bikeID != uuid.Nil {
		invalidateBike(s.cache, s.logger, bikeID.String())
	}

	s.logger.Info("Transfer request resolved", map[string]interface{}{
		"transfer_id": resolved.ID.String(),
		"status":      string(resolved.Status),
		"user_id":     caller.UserID,
	})

	publishEvent(ctx, s.events, s.logger, domain.NewEvent(domain.EventTransferResolved, caller.UserID, resolved.ID.String(), map[string]interface{}{
		"bikeId": resolved.BikeID.String(),
		"status": string(resolved.Status),
	}))

	return resolved, nil
}

func (s *TransferService) completeTransfer(ctx context.Context, tx ports.TransferTx, caller *domain.TokenPayload, req *domain.TransferRequest, now time.Time) error {
	bike, err := tx.GetBikeForUpdate(ctx, req.BikeID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return domain.ErrFailedPrecondition("La bicicleta ya no está disponible para transferir.")
		}
		return err
	}
	if !bike.IsOwnedBy(req.FromOwnerID) {
		return domain.ErrFailedPrecondition("La bicicleta cambió de propietario desde que se envió la solicitud.")
	}

	recipient, err := tx.GetProfile(ctx, caller.UserID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return domain.ErrNotFound("No se encontró el perfil del destinatario.")
		}
		return err
	}

	entry, err := bike.CompleteTransfer(recipient, domain.NoteTransferCompleted, req.TransferDocumentURL, now)
	if err != nil {
		return err
	}
	return tx.SaveBikeOwnership(ctx, bike, historyEntries(entry))
}

// ListForUser returns requests sent by the caller and addressed to the caller's
// email, deduplicated and newest first.
func (s *TransferService) ListForUser(ctx context.Context, caller *domain.TokenPayload) ([]*domain.TransferRequest, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	sent, err := s.transferRepo.GetTransfersBySender(ctx, caller.UserID)
	if err != nil {
		return nil, internalError(s.logger, "Failed to list sent transfers", err, map[string]interface{}{
			"user_id": caller.UserID,
		})
	}

	var received []*domain.TransferRequest
	if caller.Email != "" {
		received, err = s.transferRepo.GetTransfersByRecipientEmail(ctx, domain.FoldEmail(caller.Email))
		if err != nil {
			return nil, internalError(s.logger, "Failed to list received transfers", err, map[string]interface{}{
				"user_id": caller.UserID,
			})
		}
	}

	seen := make(map[uuid.UUID]struct{}, len(sent)+len(received))
	requests := make([]*domain.TransferRequest, 0, len(sent)+len(received))
	for _, list := range [][]*domain.TransferRequest{sent, received} {
		for _, req := range list {
			if _, ok := seen[req.ID]; ok {
				continue
			}
			seen[req.ID] = struct{}{}
			requests = append(requests, req)
		}
	}
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].RequestedAt.After(requests[j].RequestedAt)
	})

	return requests, nil
}
