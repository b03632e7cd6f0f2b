package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-cert-backend/models"
)

func TestTokenManager_AuthRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret")
	user := models.User{ID: 7, Email: "alice@st.niituniversity.in", Role: models.RoleUniversity, Verified: true}

	token, err := m.GenerateAuthToken(user)
	require.NoError(t, err)

	claims, err := m.ParseAuthToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.ID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, "university", claims.Role)
	assert.True(t, claims.Verified)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestTokenManager_CertificateRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret")

	token, err := m.GenerateCertificateToken(12, 34)
	require.NoError(t, err)

	claims, err := m.ParseCertificateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 12, claims.StudentID)
	assert.Equal(t, 34, claims.CertID)
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("test-secret")
	m.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }

	token, err := m.GenerateCertificateToken(1, 1)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseCertificateToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a").GenerateCertificateToken(1, 1)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b").ParseCertificateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	claims := CertificateClaims{
		StudentID: 1,
		CertID:    1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("test-secret").ParseCertificateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RequiresExpiry(t *testing.T) {
	secret := "test-secret"
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, CertificateClaims{StudentID: 1, CertID: 1}).
		SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewTokenManager(secret).ParseCertificateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Garbage(t *testing.T) {
	_, err := NewTokenManager("s").ParseAuthToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
