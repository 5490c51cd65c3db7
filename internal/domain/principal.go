package domain

import (
	"strings"
	"time"
)

// AccountType is the flat account-type tag of a principal.
type AccountType string

const (
	AccountTypeDonor     AccountType = "donor"
	AccountTypeRecipient AccountType = "recipient"
	AccountTypeHospital  AccountType = "hospital"
	AccountTypeAdmin     AccountType = "admin"
)

// Valid reports whether t belongs to the closed set of account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeDonor, AccountTypeRecipient, AccountTypeHospital, AccountTypeAdmin:
		return true
	}
	return false
}

// BloodType is an ABO/Rh group, or BloodTypeNotApplicable for non-donor accounts.
type BloodType string

const (
	BloodTypeAPos          BloodType = "A+"
	BloodTypeANeg          BloodType = "A-"
	BloodTypeBPos          BloodType = "B+"
	BloodTypeBNeg          BloodType = "B-"
	BloodTypeOPos          BloodType = "O+"
	BloodTypeONeg          BloodType = "O-"
	BloodTypeABPos         BloodType = "AB+"
	BloodTypeABNeg         BloodType = "AB-"
	BloodTypeNotApplicable BloodType = "Not Applicable"
)

// Valid reports whether b belongs to the closed set of blood types.
func (b BloodType) Valid() bool {
	switch b {
	case BloodTypeAPos, BloodTypeANeg, BloodTypeBPos, BloodTypeBNeg,
		BloodTypeOPos, BloodTypeONeg, BloodTypeABPos, BloodTypeABNeg,
		BloodTypeNotApplicable:
		return true
	}
	return false
}

// Principal is the persisted account record.
type Principal struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	AccountType  AccountType
	BloodType    *BloodType
	Phone        *string
	Address      *string
	// Availability is the donor's readiness to donate now; unrelated to IsActive.
	Availability bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PrincipalFilter narrows admin listings and counts. Zero values match everything.
type PrincipalFilter struct {
	AccountType AccountType
	ActiveOnly  bool
}

// Matches reports whether p passes the filter.
func (f PrincipalFilter) Matches(p *Principal) bool {
	if f.AccountType != "" && p.AccountType != f.AccountType {
		return false
	}
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	return true
}

// NormalizeEmail lowercases and trims, so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OptionalString trims s and returns nil when nothing remains.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
