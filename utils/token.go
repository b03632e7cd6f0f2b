package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vnkhanh/e-cert-backend/models"
)

const TokenTTL = 7 * 24 * time.Hour

// AuthClaims is the bearer token issued at login and registration.
type AuthClaims struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
	jwt.RegisteredClaims
}

// CertificateClaims is the payload of the verification link printed as a QR code.
type CertificateClaims struct {
	StudentID int `json:"student_id"`
	CertID    int `json:"cert_id"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

// TokenManager signs and parses HS256 tokens with a single secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: TokenTTL, now: time.Now}
}

func (m *TokenManager) expiry() jwt.RegisteredClaims {
	now := m.now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
}

func (m *TokenManager) sign(claims jwt.Claims) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, nil
}

func (m *TokenManager) GenerateAuthToken(u models.User) (string, error) {
	return m.sign(AuthClaims{
		ID:               u.ID,
		Email:            u.Email,
		Role:             string(u.Role),
		Verified:         u.Verified,
		RegisteredClaims: m.expiry(),
	})
}

func (m *TokenManager) GenerateCertificateToken(studentID, certID int) (string, error) {
	return m.sign(CertificateClaims{
		StudentID:        studentID,
		CertID:           certID,
		RegisteredClaims: m.expiry(),
	})
}

// ParseAuthToken validates signature and expiry. Expired tokens still match
// jwt.ErrTokenExpired through errors.Is.
func (m *TokenManager) ParseAuthToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *TokenManager) ParseCertificateToken(tokenString string) (*CertificateClaims, error) {
	claims := &CertificateClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *TokenManager) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
