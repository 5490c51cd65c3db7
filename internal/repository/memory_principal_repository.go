package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/donor-auth/internal/domain"
)

// MemoryPrincipalRepository keeps principals in process memory.
type MemoryPrincipalRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Principal
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryPrincipalRepository returns an empty repository for development and tests.
func NewMemoryPrincipalRepository() *MemoryPrincipalRepository {
	return &MemoryPrincipalRepository{
		byID:    make(map[string]*domain.Principal),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// Create checks and inserts under one lock, so concurrent duplicates cannot both land.
func (r *MemoryPrincipalRepository) Create(_ context.Context, principal *domain.Principal) error {
	key := domain.NormalizeEmail(principal.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[key]; taken {
		return ErrDuplicateEmail
	}
	if principal.ID == "" {
		principal.ID = uuid.NewString()
	}
	now := r.now().UTC()
	principal.CreatedAt = now
	principal.UpdatedAt = now

	r.byID[principal.ID] = clonePrincipal(principal)
	r.byEmail[key] = principal.ID
	return nil
}

func (r *MemoryPrincipalRepository) GetByID(_ context.Context, id string) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePrincipal(p), nil
}

func (r *MemoryPrincipalRepository) GetByEmail(_ context.Context, email string) (*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePrincipal(r.byID[id]), nil
}

func (r *MemoryPrincipalRepository) UpdateAvailability(_ context.Context, id string, available bool) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Availability = available
	p.UpdatedAt = r.now().UTC()
	return clonePrincipal(p), nil
}

func (r *MemoryPrincipalRepository) Count(_ context.Context, filter domain.PrincipalFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, p := range r.byID {
		if filter.Matches(p) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryPrincipalRepository) List(_ context.Context, filter domain.PrincipalFilter) ([]*domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Principal
	for _, p := range r.byID {
		if filter.Matches(p) {
			out = append(out, clonePrincipal(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a principal and frees its email.
func (r *MemoryPrincipalRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byEmail, domain.NormalizeEmail(p.Email))
	delete(r.byID, id)
	return nil
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	cp := *p
	if p.BloodType != nil {
		bt := *p.BloodType
		cp.BloodType = &bt
	}
	if p.Phone != nil {
		phone := *p.Phone
		cp.Phone = &phone
	}
	if p.Address != nil {
		addr := *p.Address
		cp.Address = &addr
	}
	return &cp
}
