package model

import (
	"time"

	"kids-content-billing/internal/domain"
)

// User is the slim projection target for billing: the rest of the user
// profile lives in the main application service.
type User struct {
	ID           string
	IsPremium    bool
	PremiumSince *time.Time
	PremiumUntil *time.Time
	UpdatedAt    time.Time
}

func NewUser(id string) (*User, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{ID: id, UpdatedAt: time.Now()}, nil
}

// ApplyPremium applies a premium projection effect and returns an updated copy.
func (u *User) ApplyPremium(premium bool, until *time.Time) *User {
	cp := *u
	now := time.Now()
	cp.IsPremium = premium
	cp.UpdatedAt = now
	if premium {
		if cp.PremiumSince == nil {
			cp.PremiumSince = &now
		}
		cp.PremiumUntil = until
	} else {
		cp.PremiumUntil = nil
	}
	return &cp
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
