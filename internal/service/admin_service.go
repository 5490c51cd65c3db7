package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/donor-auth/internal/domain"
	"github.com/spec-kit/donor-auth/internal/repository"
	apperrors "github.com/spec-kit/donor-auth/pkg/errorutil"
)

// Stats summarizes the platform for the admin dashboard.
type Stats struct {
	TotalUsers       int64 `json:"totalUsers"`
	ActiveDonors     int64 `json:"activeDonors"`
	PartnerHospitals int64 `json:"partnerHospitals"`
	LivesConnected   int64 `json:"livesConnected"`
}

// AdminService serves read-only administrative views over principals.
type AdminService struct {
	principals repository.PrincipalRepository
}

// NewAdminService builds the service.
func NewAdminService(principals repository.PrincipalRepository) *AdminService {
	return &AdminService{principals: principals}
}

// Stats counts principals for the dashboard. LivesConnected is active donors plus hospitals.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.principals.Count(ctx, domain.PrincipalFilter{})
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("stats: count users: %w", err))
	}
	donors, err := s.principals.Count(ctx, domain.PrincipalFilter{AccountType: domain.AccountTypeDonor, ActiveOnly: true})
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("stats: count donors: %w", err))
	}
	hospitals, err := s.principals.Count(ctx, domain.PrincipalFilter{AccountType: domain.AccountTypeHospital})
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("stats: count hospitals: %w", err))
	}

	return &Stats{
		TotalUsers:       total,
		ActiveDonors:     donors,
		PartnerHospitals: hospitals,
		LivesConnected:   donors + hospitals,
	}, nil
}

// ListUsers returns every principal.
func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.Principal, error) {
	return s.list(ctx, domain.PrincipalFilter{})
}

// ListDonors returns donor principals.
func (s *AdminService) ListDonors(ctx context.Context) ([]*domain.Principal, error) {
	return s.list(ctx, domain.PrincipalFilter{AccountType: domain.AccountTypeDonor})
}

// ListHospitals returns hospital principals.
func (s *AdminService) ListHospitals(ctx context.Context) ([]*domain.Principal, error) {
	return s.list(ctx, domain.PrincipalFilter{AccountType: domain.AccountTypeHospital})
}

func (s *AdminService) list(ctx context.Context, filter domain.PrincipalFilter) ([]*domain.Principal, error) {
	principals, err := s.principals.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list principals: %w", err))
	}
	return principals, nil
}
