package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/donor-auth/internal/auth"
	"github.com/spec-kit/donor-auth/internal/config"
	"github.com/spec-kit/donor-auth/internal/domain"
	"github.com/spec-kit/donor-auth/internal/events"
	"github.com/spec-kit/donor-auth/internal/repository"
	apperrors "github.com/spec-kit/donor-auth/pkg/errorutil"
)

type memoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func (d *memoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	if d.revoked == nil {
		d.revoked = map[string]time.Time{}
	}
	d.revoked[tokenID] = until
	return nil
}

func (d *memoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.revoked[tokenID]
	return ok, nil
}

type failingRepository struct {
	repository.PrincipalRepository
	err error
}

func (f failingRepository) GetByEmail(context.Context, string) (*domain.Principal, error) {
	return nil, f.err
}

func (f failingRepository) GetByID(context.Context, string) (*domain.Principal, error) {
	return nil, f.err
}

func (f failingRepository) Count(context.Context, domain.PrincipalFilter) (int64, error) {
	return 0, f.err
}

func (f failingRepository) List(context.Context, domain.PrincipalFilter) ([]*domain.Principal, error) {
	return nil, f.err
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type accountFixture struct {
	svc      *AccountService
	repo     *repository.MemoryPrincipalRepository
	tokens   *auth.TokenManager
	denylist *memoryDenylist
	events   *recorder
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: "service-secret", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	cfg := testAuthConfig()
	repo := repository.NewMemoryPrincipalRepository()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	denylist := &memoryDenylist{}
	rec := &recorder{}
	dispatcher := events.NewAccountEventBus()
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, rec.handle)
	}

	svc := NewAccountService(cfg, AccountDependencies{
		Principals: repo,
		Tokens:     tokens,
		Denylist:   denylist,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return &accountFixture{svc: svc, repo: repo, tokens: tokens, denylist: denylist, events: rec}
}

func donorSignup() SignupInput {
	return SignupInput{
		Name:        "A",
		Email:       "a@x.com",
		Password:    "secret1",
		AccountType: "donor",
		BloodType:   "O+",
	}
}

func TestAccountService_Signup(t *testing.T) {
	f := newAccountFixture(t)

	res, err := f.svc.Signup(context.Background(), donorSignup())
	require.NoError(t, err)

	p := res.Principal
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "a@x.com", p.Email)
	assert.Equal(t, domain.AccountTypeDonor, p.AccountType)
	require.NotNil(t, p.BloodType)
	assert.Equal(t, domain.BloodTypeOPos, *p.BloodType)
	assert.Nil(t, p.Phone)
	assert.Nil(t, p.Address)
	assert.True(t, p.Availability)
	assert.True(t, p.IsActive)
	assert.NotEqual(t, "secret1", p.PasswordHash)
	assert.True(t, strings.HasPrefix(p.PasswordHash, "$2"))

	identity, err := f.tokens.Verify(res.Token.Value)
	require.NoError(t, err)
	assert.Equal(t, p.ID, identity.PrincipalID)
	assert.Equal(t, "a@x.com", identity.Email)
	assert.Equal(t, domain.AccountTypeDonor, identity.AccountType)

	stored, err := f.repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.PasswordHash, stored.PasswordHash)

	assert.Equal(t, []events.EventType{events.EventPrincipalSignedUp}, f.events.types())
}

func TestAccountService_SignupNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	in := donorSignup()
	in.Email = "  Alice@Example.COM "
	res, err := f.svc.Signup(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", res.Principal.Email)

	in.Email = "alice@example.com"
	_, err = f.svc.Signup(ctx, in)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	count, err := f.repo.Count(ctx, domain.PrincipalFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAccountService_SignupValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{name: "missing name", mutate: func(in *SignupInput) { in.Name = "  " }},
		{name: "missing email", mutate: func(in *SignupInput) { in.Email = "" }},
		{name: "missing password", mutate: func(in *SignupInput) { in.Password = "" }},
		{name: "missing account type", mutate: func(in *SignupInput) { in.AccountType = "" }},
		{name: "short password", mutate: func(in *SignupInput) { in.Password = "12345" }},
		{name: "unknown account type", mutate: func(in *SignupInput) { in.AccountType = "nurse" }},
		{name: "unknown blood type", mutate: func(in *SignupInput) { in.BloodType = "C+" }},
		{name: "password beyond bcrypt limit", mutate: func(in *SignupInput) { in.Password = strings.Repeat("p", 73) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccountFixture(t)
			in := donorSignup()
			tt.mutate(&in)

			_, err := f.svc.Signup(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))

			count, err := f.repo.Count(context.Background(), domain.PrincipalFilter{})
			require.NoError(t, err)
			assert.Zero(t, count)
			assert.Empty(t, f.events.types())
		})
	}
}

func TestAccountService_SignupAcceptsSixCharacterPassword(t *testing.T) {
	f := newAccountFixture(t)
	in := donorSignup()
	in.Password = "123456"
	in.BloodType = ""
	in.Phone = "555-0100"

	res, err := f.svc.Signup(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, res.Principal.BloodType)
	require.NotNil(t, res.Principal.Phone)
	assert.Equal(t, "555-0100", *res.Principal.Phone)
}

func TestAccountService_ConcurrentSignupSameEmail(t *testing.T) {
	f := newAccountFixture(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Signup(context.Background(), donorSignup())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperrors.KindOf(err) == apperrors.KindConflict {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
}

func TestAccountService_Login(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	signed, err := f.svc.Signup(ctx, donorSignup())
	require.NoError(t, err)

	t.Run("succeeds with any email casing", func(t *testing.T) {
		res, err := f.svc.Login(ctx, "A@X.COM", "secret1")
		require.NoError(t, err)
		assert.Equal(t, signed.Principal.ID, res.Principal.ID)

		identity, err := f.tokens.Verify(res.Token.Value)
		require.NoError(t, err)
		assert.Equal(t, signed.Principal.ID, identity.PrincipalID)
	})

	t.Run("wrong password", func(t *testing.T) {
		res, err := f.svc.Login(ctx, "a@x.com", "wrong")
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "nobody@x.com", "secret1")
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "", "secret1")
		assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
		_, err = f.svc.Login(ctx, "a@x.com", "")
		assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
	})

	assert.Contains(t, f.events.types(), events.EventLoginRejected)
	assert.Contains(t, f.events.types(), events.EventPrincipalLoggedIn)
}

func TestAccountService_Me(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	res, err := f.svc.Signup(ctx, donorSignup())
	require.NoError(t, err)

	got, err := f.svc.Me(ctx, res.Principal.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)

	require.NoError(t, f.repo.Delete(ctx, res.Principal.ID))

	_, err = f.svc.Me(ctx, res.Principal.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestAccountService_UpdateAvailability(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	res, err := f.svc.Signup(ctx, donorSignup())
	require.NoError(t, err)
	before := res.Principal

	off := false
	got, err := f.svc.UpdateAvailability(ctx, before.ID, &off)
	require.NoError(t, err)
	assert.False(t, got.Availability)
	assert.Equal(t, before.Name, got.Name)
	assert.Equal(t, before.Email, got.Email)
	assert.Equal(t, before.PasswordHash, got.PasswordHash)
	assert.Equal(t, *before.BloodType, *got.BloodType)
	assert.Equal(t, before.IsActive, got.IsActive)

	_, err = f.svc.UpdateAvailability(ctx, before.ID, nil)
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))

	on := true
	_, err = f.svc.UpdateAvailability(ctx, "missing", &on)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	assert.Contains(t, f.events.types(), events.EventAvailabilityChanged)
}

func TestAccountService_Logout(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	res, err := f.svc.Signup(ctx, donorSignup())
	require.NoError(t, err)

	assert.False(t, f.svc.Logout(ctx, ""))
	assert.False(t, f.svc.Logout(ctx, "not-a-token"))

	assert.True(t, f.svc.Logout(ctx, res.Token.Value))
	identity, err := f.tokens.Verify(res.Token.Value)
	require.NoError(t, err)
	revoked, err := f.denylist.IsRevoked(ctx, identity.TokenID)
	require.NoError(t, err)
	assert.True(t, revoked)

	f.denylist.err = errors.New("redis down")
	assert.False(t, f.svc.Logout(ctx, res.Token.Value))
}

func TestAccountService_LogoutWithoutDenylist(t *testing.T) {
	cfg := testAuthConfig()
	svc := NewAccountService(cfg, AccountDependencies{Principals: repository.NewMemoryPrincipalRepository()})

	res, err := svc.Signup(context.Background(), donorSignup())
	require.NoError(t, err)
	assert.False(t, svc.Logout(context.Background(), res.Token.Value))
}

func TestAccountService_RepositoryFailureIsInternal(t *testing.T) {
	cfg := testAuthConfig()
	svc := NewAccountService(cfg, AccountDependencies{
		Principals: failingRepository{err: errors.New("connection reset")},
	})
	ctx := context.Background()

	_, err := svc.Signup(ctx, donorSignup())
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	assert.ErrorContains(t, err, "connection reset")

	_, err = svc.Login(ctx, "a@x.com", "secret1")
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))

	_, err = svc.Me(ctx, "id")
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestAccountService_SignupUniqueViolationOnPostgresIsConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// The email lookup misses, then a concurrent signup wins the unique index.
	mock.ExpectQuery(`WHERE lower\(email\)=lower\(\$1\)`).
		WithArgs("a@x.com").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO principals`).
		WithArgs(pgxmock.AnyArg(), "a@x.com", pgxmock.AnyArg(), "A", "donor",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), true, true).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	svc := NewAccountService(testAuthConfig(), AccountDependencies{
		Principals: repository.NewPrincipalRepository(mock),
	})

	res, err := svc.Signup(context.Background(), donorSignup())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.Equal(t, 409, apperrors.HTTPStatus(apperrors.KindOf(err)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
