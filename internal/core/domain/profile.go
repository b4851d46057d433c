package domain

import "time"

// UserProfile is a Profile Store entry. ID is the identity provider subject.
type UserProfile struct {
	ID                 string    `json:"id" validate:"required"`
	Role               UserRole  `json:"role" validate:"required"`
	FirstName          string    `json:"firstName" validate:"max=100"`
	LastName           string    `json:"lastName" validate:"max=100"`
	Email              string    `json:"email" validate:"required,email"`
	Phone              string    `json:"phone" validate:"max=30"`
	OrganizationName   *string   `json:"organizationName"`
	RegisteredByShopID *string   `json:"registeredByShopId"`
	ReferrerID         *string   `json:"referrerId"`
	ReferralCount      int       `json:"referralCount"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (p *UserProfile) Contact() OwnerContact {
	return OwnerContact{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
	}
}

func (p *UserProfile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// ProfileUpdate carries the editable profile fields. Nil means untouched.
type ProfileUpdate struct {
	FirstName        *string
	LastName         *string
	Phone            *string
	OrganizationName *string
}

// AccountInput is used by admin and shop provisioning.
type AccountInput struct {
	FirstName        string `validate:"max=100"`
	LastName         string `validate:"max=100"`
	Email            string `validate:"required,email"`
	Phone            string `validate:"max=30"`
	OrganizationName string `validate:"max=200"`
}
