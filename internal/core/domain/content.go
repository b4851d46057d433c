package domain

import "time"

// HomepageContent is the single editable document rendered on the landing page.
type HomepageContent struct {
	Title        string     `json:"title" validate:"max=200"`
	Subtitle     string     `json:"subtitle" validate:"max=300"`
	Body         string     `json:"body" validate:"max=10000"`
	HeroImageKey *string    `json:"heroImageKey"`
	HeroImageURL *string    `json:"heroImageUrl"`
	UpdatedBy    *string    `json:"updatedBy"`
	UpdatedAt    *time.Time `json:"updatedAt"`
}

// UploadTarget is a presigned upload slot handed to the client.
type UploadTarget struct {
	UploadURL  string    `json:"uploadUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
	StorageKey string    `json:"storageKey"`
	PublicURL  string    `json:"publicUrl"`
}
