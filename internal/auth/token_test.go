package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/donor-auth/internal/domain"
)

func testPrincipal() *domain.Principal {
	return &domain.Principal{
		ID:          "7c0a5a8e-2b4f-4a39-9d0e-6f3c1f0b9a11",
		Email:       "a@x.com",
		AccountType: domain.AccountTypeDonor,
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	issued, err := tm.Issue(testPrincipal())
	require.NoError(t, err)
	require.NotEmpty(t, issued.Value)

	identity, err := tm.Verify(issued.Value)
	require.NoError(t, err)
	assert.Equal(t, "7c0a5a8e-2b4f-4a39-9d0e-6f3c1f0b9a11", identity.PrincipalID)
	assert.Equal(t, "a@x.com", identity.Email)
	assert.Equal(t, domain.AccountTypeDonor, identity.AccountType)
	assert.NotEmpty(t, identity.TokenID)
	assert.WithinDuration(t, issued.ExpiresAt, identity.ExpiresAt, time.Second)
	assert.WithinDuration(t, identity.ExpiresAt.Add(-time.Hour), identity.IssuedAt, time.Second)
}

func TestNewTokenManagerDefaultsTTL(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, NewTokenManager("s", 0).TTL())
}

func TestVerifyRejectsAfterExpiry(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	issued, err := tm.Issue(testPrincipal())
	require.NoError(t, err)

	_, err = tm.Verify(issued.Value)
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tm.Verify(issued.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issued, err := NewTokenManager("right-secret", time.Hour).Issue(testPrincipal())
	require.NoError(t, err)

	_, err = NewTokenManager("wrong-secret", time.Hour).Verify(issued.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	for _, raw := range []string{"", "not.a.jwt", "abc", "a.b.c.d"} {
		_, err := tm.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	secret := []byte("test-secret")
	claims := Claims{
		PrincipalID: "u1",
		Email:       "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString(secret)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tm := NewTokenManager(string(secret), time.Hour)
	_, err = tm.Verify(hs384)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tm.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTokenWithoutExpiry(t *testing.T) {
	secret := []byte("test-secret")
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{PrincipalID: "u1"}).SignedString(secret)
	require.NoError(t, err)

	_, err = NewTokenManager(string(secret), time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsEveryBitFlip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	issued, err := tm.Issue(testPrincipal())
	require.NoError(t, err)

	pristine := []byte(issued.Value)
	for i := range pristine {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), pristine...)
			mutated[i] ^= 1 << bit
			if _, err := tm.Verify(string(mutated)); err == nil {
				t.Fatalf("mutation at byte %d bit %d was accepted", i, bit)
			}
		}
	}
}
