package dto

import (
	"time"

	"github.com/spec-kit/donor-auth/internal/domain"
)

// MemberSinceLayout renders createdAt as an en-IN long date, e.g. "18 October 2026".
const MemberSinceLayout = "2 January 2006"

// SignupRequest payload for new accounts.
type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AccountType string `json:"accountType"`
	BloodType   string `json:"bloodType"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AvailabilityRequest payload for the availability toggle. Available stays nil
// when the field is absent.
type AvailabilityRequest struct {
	Available *bool `json:"available"`
}

// PrincipalView is the public projection of a principal. It never carries the digest.
type PrincipalView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	AccountType  string  `json:"accountType"`
	BloodType    *string `json:"bloodType"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	Availability bool    `json:"availability"`
	IsActive     bool    `json:"isActive"`
	MemberSince  string  `json:"memberSince"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Message string        `json:"message"`
	User    PrincipalView `json:"user"`
	Token   string        `json:"token"`
}

// UserResponse wraps a single principal view.
type UserResponse struct {
	Message string        `json:"message,omitempty"`
	User    PrincipalView `json:"user"`
}

// MessageResponse carries a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ToPrincipalView projects a principal for the wire. memberSince is the calendar
// date of createdAt in loc.
func ToPrincipalView(p *domain.Principal, loc *time.Location) PrincipalView {
	view := PrincipalView{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		AccountType:  string(p.AccountType),
		Phone:        p.Phone,
		Address:      p.Address,
		Availability: p.Availability,
		IsActive:     p.IsActive,
		MemberSince:  FormatMemberSince(p.CreatedAt, loc),
	}
	if p.BloodType != nil {
		bt := string(*p.BloodType)
		view.BloodType = &bt
	}
	return view
}

// ToPrincipalViews projects a list, returning an empty slice rather than nil.
func ToPrincipalViews(principals []*domain.Principal, loc *time.Location) []PrincipalView {
	views := make([]PrincipalView, 0, len(principals))
	for _, p := range principals {
		views = append(views, ToPrincipalView(p, loc))
	}
	return views
}

// FormatMemberSince formats t in loc, or UTC when loc is nil. The zero time renders
// as an empty string.
func FormatMemberSince(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(MemberSinceLayout)
}
