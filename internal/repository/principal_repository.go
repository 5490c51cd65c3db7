package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/donor-auth/internal/domain"
)

var (
	// ErrNotFound is returned when no principal matches the lookup.
	ErrNotFound = errors.New("principal not found")
	// ErrDuplicateEmail is returned when an insert collides with an existing email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// PrincipalRepository defines persistence access for principals.
type PrincipalRepository interface {
	Create(ctx context.Context, principal *domain.Principal) error
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	GetByEmail(ctx context.Context, email string) (*domain.Principal, error)
	UpdateAvailability(ctx context.Context, id string, available bool) (*domain.Principal, error)
	Count(ctx context.Context, filter domain.PrincipalFilter) (int64, error)
	List(ctx context.Context, filter domain.PrincipalFilter) ([]*domain.Principal, error)
}

// DBTX is the subset of pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const principalColumns = `id, email, password_hash, name, account_type, blood_type, phone, address,
        availability, is_active, created_at, updated_at`

type principalRepository struct {
	db DBTX
}

// NewPrincipalRepository returns a Postgres-backed implementation.
func NewPrincipalRepository(db DBTX) PrincipalRepository {
	return &principalRepository{db: db}
}

func (r *principalRepository) Create(ctx context.Context, principal *domain.Principal) error {
	const query = `
        INSERT INTO principals (id, email, password_hash, name, account_type, blood_type, phone, address, availability, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at, updated_at`

	if principal.ID == "" {
		principal.ID = uuid.NewString()
	}

	err := r.db.QueryRow(ctx, query,
		principal.ID,
		principal.Email,
		principal.PasswordHash,
		principal.Name,
		string(principal.AccountType),
		bloodTypeParam(principal.BloodType),
		principal.Phone,
		principal.Address,
		principal.Availability,
		principal.IsActive,
	).Scan(&principal.CreatedAt, &principal.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (r *principalRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE id=$1`
	return scanPrincipal(r.db.QueryRow(ctx, query, id))
}

func (r *principalRepository) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE lower(email)=lower($1)`
	return scanPrincipal(r.db.QueryRow(ctx, query, email))
}

func (r *principalRepository) UpdateAvailability(ctx context.Context, id string, available bool) (*domain.Principal, error) {
	query := `
        UPDATE principals SET availability=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING ` + principalColumns
	return scanPrincipal(r.db.QueryRow(ctx, query, available, id))
}

func (r *principalRepository) Count(ctx context.Context, filter domain.PrincipalFilter) (int64, error) {
	const query = `
        SELECT COUNT(*) FROM principals
        WHERE ($1 = '' OR account_type = $1) AND ($2 = FALSE OR is_active)`

	var count int64
	if err := r.db.QueryRow(ctx, query, string(filter.AccountType), filter.ActiveOnly).Scan(&count); err != nil {
		return 0, fmt.Errorf("count principals: %w", err)
	}
	return count, nil
}

func (r *principalRepository) List(ctx context.Context, filter domain.PrincipalFilter) ([]*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals
        WHERE ($1 = '' OR account_type = $1) AND ($2 = FALSE OR is_active)
        ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, string(filter.AccountType), filter.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}
	defer rows.Close()

	var principals []*domain.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}
	return principals, nil
}

func scanPrincipal(row pgx.Row) (*domain.Principal, error) {
	var (
		p           domain.Principal
		accountType string
		bloodType   *string
	)
	if err := row.Scan(
		&p.ID,
		&p.Email,
		&p.PasswordHash,
		&p.Name,
		&accountType,
		&bloodType,
		&p.Phone,
		&p.Address,
		&p.Availability,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan principal: %w", err)
	}
	p.AccountType = domain.AccountType(accountType)
	if bloodType != nil {
		bt := domain.BloodType(*bloodType)
		p.BloodType = &bt
	}
	return &p, nil
}

func bloodTypeParam(bt *domain.BloodType) *string {
	if bt == nil {
		return nil
	}
	s := string(*bt)
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// isInvalidID catches lookups by ids that are not UUIDs.
func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}
