package domain

import "strings"

type UserRole string

const (
	Cyclist  UserRole = "cyclist"
	BikeShop UserRole = "bikeshop"
	NGO      UserRole = "ngo"
	Admin    UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Cyclist, BikeShop, NGO, Admin:
		return true
	}
	return false
}

// TokenPayload is the verified caller identity extracted from a bearer token.
type TokenPayload struct {
	ID     string
	UserID string
	Email  string
	Role   UserRole
}

func (p *TokenPayload) IsAdmin() bool {
	return p != nil && p.Role == Admin
}

// HasEmail compares the caller email case-insensitively.
func (p *TokenPayload) HasEmail(email string) bool {
	return p != nil && p.Email != "" && strings.EqualFold(strings.TrimSpace(p.Email), strings.TrimSpace(email))
}
