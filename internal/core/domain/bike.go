package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// swagger:model domain.Bike
type Bike struct {
	ID                   uuid.UUID            `json:"id"`
	SerialNumber         string               `json:"serialNumber" validate:"required,max=100"`
	Brand                string               `json:"brand" validate:"required,max=100"`
	Model                string               `json:"model" validate:"required,max=100"`
	Color                string               `json:"color,omitempty" validate:"max=50"`
	Description          *string              `json:"description"`
	Location             string               `json:"location,omitempty" validate:"max=200"`
	BikeType             string               `json:"bikeType,omitempty" validate:"max=50"`
	OwnerID              string               `json:"ownerId"`
	OwnerFirstName       string               `json:"ownerFirstName"`
	OwnerLastName        string               `json:"ownerLastName"`
	OwnerEmail           string               `json:"ownerEmail"`
	OwnerPhone           string               `json:"ownerPhone"`
	RegisteredByShopID   *string              `json:"registeredByShopId"`
	Status               BikeStatus           `json:"status"`
	StatusHistory        []StatusHistoryEntry `json:"statusHistory"`
	TheftDetails         *TheftDetails        `json:"theftDetails"`
	OwnershipDocumentURL *string              `json:"ownershipDocumentUrl"`
	PhotoURLs            []string             `json:"photoUrls"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

type StatusHistoryEntry struct {
	Status              BikeStatus `json:"status"`
	Timestamp           time.Time  `json:"timestamp"`
	Notes               string     `json:"notes"`
	TransferDocumentURL *string    `json:"transferDocumentUrl,omitempty"`
}

type TheftDetails struct {
	TheftLocationState      string    `json:"theftLocationState" validate:"required,max=100"`
	TheftLocationCountry    string    `json:"theftLocationCountry,omitempty" validate:"max=100"`
	TheftIncidentDetails    string    `json:"theftIncidentDetails" validate:"required,max=2000"`
	TheftPerpetratorDetails string    `json:"theftPerpetratorDetails,omitempty" validate:"max=2000"`
	GeneralNotes            string    `json:"generalNotes,omitempty" validate:"max=2000"`
	ReportedAt              time.Time `json:"reportedAt"`
}

// OwnerContact is the subset of a profile copied onto every owned bike.
type OwnerContact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// BikeUpdate holds the allow-listed fields of a partial update. Nil means untouched;
// an empty Description or OwnershipDocumentURL clears it.
type BikeUpdate struct {
	SerialNumber         *string
	Brand                *string
	Model                *string
	Color                *string
	Description          *string
	Location             *string
	BikeType             *string
	PhotoURLs            []string
	OwnershipDocumentURL *string
}

// PublicBike is what anonymous and non-owning callers see.
type PublicBike struct {
	ID            uuid.UUID            `json:"id"`
	SerialNumber  string               `json:"serialNumber"`
	Brand         string               `json:"brand"`
	Model         string               `json:"model"`
	Color         string               `json:"color,omitempty"`
	Description   *string              `json:"description"`
	Location      string               `json:"location,omitempty"`
	BikeType      string               `json:"bikeType,omitempty"`
	Status        BikeStatus           `json:"status"`
	StatusHistory []StatusHistoryEntry `json:"statusHistory"`
	TheftDetails  *TheftDetails        `json:"theftDetails"`
	PhotoURLs     []string             `json:"photoUrls"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// NormalizeSerial trims a user-supplied serial number.
func NormalizeSerial(serial string) string {
	return strings.TrimSpace(serial)
}

// NewBike builds a freshly registered bike owned by owner.
func NewBike(owner *UserProfile, attrs Bike, now time.Time) *Bike {
	bike := attrs
	bike.ID = uuid.New()
	bike.SerialNumber = NormalizeSerial(attrs.SerialNumber)
	bike.Brand = strings.TrimSpace(attrs.Brand)
	bike.Model = strings.TrimSpace(attrs.Model)
	bike.SetOwner(owner.ID, owner.Contact())
	bike.Status = StatusActive
	bike.StatusHistory = []StatusHistoryEntry{{
		Status:    StatusActive,
		Timestamp: now,
		Notes:     NoteInitialRegistration,
	}}
	bike.TheftDetails = nil
	if bike.PhotoURLs == nil {
		bike.PhotoURLs = []string{}
	}
	bike.CreatedAt = now
	bike.UpdatedAt = now
	return &bike
}

func (b *Bike) IsOwnedBy(userID string) bool {
	return userID != "" && b.OwnerID == userID
}

func (b *Bike) SetOwner(ownerID string, contact OwnerContact) {
	b.OwnerID = ownerID
	b.OwnerFirstName = contact.FirstName
	b.OwnerLastName = contact.LastName
	b.OwnerEmail = contact.Email
	b.OwnerPhone = contact.Phone
}

// TransitionTo moves the bike to status to and returns the appended history entry.
// A transition to the current status is a no-op and returns nil.
func (b *Bike) TransitionTo(to BikeStatus, note string, documentURL *string, now time.Time) (*StatusHistoryEntry, error) {
	if b.Status == to {
		return nil, nil
	}
	if !CanTransition(b.Status, to) {
		return nil, ErrFailedPrecondition("Transición de estado no permitida: " + string(b.Status) + " -> " + string(to))
	}
	if note == "" {
		note = NoteStatusChanged
	}
	entry := StatusHistoryEntry{
		Status:              to,
		Timestamp:           now,
		Notes:               note,
		TransferDocumentURL: documentURL,
	}
	if b.Status == StatusStolen {
		b.TheftDetails = nil
	}
	b.Status = to
	b.StatusHistory = append(b.StatusHistory, entry)
	b.UpdatedAt = now
	return &entry, nil
}

// ReportStolen records theft details and moves the bike to Robada.
// Reporting an already stolen bike only overwrites the details.
func (b *Bike) ReportStolen(details TheftDetails, now time.Time) (*StatusHistoryEntry, error) {
	note := strings.TrimSpace(details.GeneralNotes)
	if note == "" {
		note = NoteReportedStolen
	}
	entry, err := b.TransitionTo(StatusStolen, note, nil, now)
	if err != nil {
		return nil, err
	}
	details.ReportedAt = now
	b.TheftDetails = &details
	b.UpdatedAt = now
	return entry, nil
}

// MarkRecovered moves a stolen bike back to En Regla and drops its theft details.
func (b *Bike) MarkRecovered(now time.Time) (*StatusHistoryEntry, error) {
	if b.Status != StatusStolen {
		return nil, ErrFailedPrecondition("La bicicleta no está reportada como robada.")
	}
	return b.TransitionTo(StatusActive, NoteMarkedRecovered, nil, now)
}

// CompleteTransfer hands the bike to newOwner. It appends a Transferida entry and
// leaves the live status at En Regla.
func (b *Bike) CompleteTransfer(newOwner *UserProfile, note string, documentURL *string, now time.Time) (*StatusHistoryEntry, error) {
	entry, err := b.TransitionTo(StatusTransferred, note, documentURL, now)
	if err != nil {
		return nil, err
	}
	b.SetOwner(newOwner.ID, newOwner.Contact())
	b.TheftDetails = nil
	b.Status = StatusActive
	b.UpdatedAt = now
	return entry, nil
}

func (b *Bike) PublicView() *PublicBike {
	return &PublicBike{
		ID:            b.ID,
		SerialNumber:  b.SerialNumber,
		Brand:         b.Brand,
		Model:         b.Model,
		Color:         b.Color,
		Description:   b.Description,
		Location:      b.Location,
		BikeType:      b.BikeType,
		Status:        b.Status,
		StatusHistory: publicHistory(b.StatusHistory),
		TheftDetails:  b.TheftDetails,
		PhotoURLs:     b.PhotoURLs,
		CreatedAt:     b.CreatedAt,
	}
}

// publicHistory drops transfer documents and replaces transfer notes, which may
// name the parties, with the fixed note.
func publicHistory(history []StatusHistoryEntry) []StatusHistoryEntry {
	out := make([]StatusHistoryEntry, len(history))
	for i, entry := range history {
		entry.TransferDocumentURL = nil
		if entry.Status == StatusTransferred {
			entry.Notes = NoteTransferCompleted
		}
		out[i] = entry
	}
	return out
}
