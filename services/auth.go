package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vnkhanh/e-cert-backend/logger"
	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/storage"
	"github.com/vnkhanh/e-cert-backend/utils"
)

// AuthService registers users, issues bearer tokens and runs the university
// email verification and approval workflow.
type AuthService struct {
	store   storage.Store
	tokens  *utils.TokenManager
	log     *logger.Logger
	domain  string
	codeTTL time.Duration
}

func NewAuthService(store storage.Store, tokens *utils.TokenManager, log *logger.Logger, universityDomain string, codeTTL time.Duration) *AuthService {
	return &AuthService{
		store:   store,
		tokens:  tokens,
		log:     log,
		domain:  strings.ToLower(strings.TrimSpace(universityDomain)),
		codeTTL: codeTTL,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     models.UserRole
}

type Session struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

func (s *AuthService) universityDomainOK(email string) bool {
	if !strings.Contains(email, "@") {
		return false
	}
	d := utils.EmailDomain(email)
	return d != "" && d == s.domain
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = utils.NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleStudent
	}
	if !in.Role.Valid() || in.Role == models.RoleAdmin {
		return nil, invalidInput("Invalid role %q", in.Role)
	}

	_, err := s.store.FindUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, conflict("User exists")
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	verified := true
	switch in.Role {
	case models.RoleStudent:
		if utils.EmailDomain(in.Email) == s.domain {
			return nil, invalidInput("Students cannot use university email domain. Use a personal email.")
		}
	case models.RoleUniversity:
		if !s.universityDomainOK(in.Email) {
			return nil, invalidInput("University signups are restricted to the configured domain")
		}
		verified = s.IsEmailVerified(ctx, in.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hash),
		Role:      in.Role,
		Verified:  verified,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("Auth service: user registered", "id", user.ID, "role", user.Role, "verified", user.Verified)

	return s.session(*user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = utils.NormalizeEmail(email)
	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, unauthorized("Invalid credentials")
	}
	return s.session(*user)
}

func (s *AuthService) session(u models.User) (*Session, error) {
	token, err := s.tokens.GenerateAuthToken(u)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u.Public()}, nil
}

// Authenticate resolves the user behind a bearer token. With roles given,
// the user must hold one of them. Unapproved university accounts are refused.
func (s *AuthService) Authenticate(ctx context.Context, token string, roles ...models.UserRole) (*models.User, error) {
	claims, err := s.tokens.ParseAuthToken(token)
	if err != nil {
		return nil, unauthorized("Invalid token")
	}
	user, err := s.store.FindUserByID(ctx, claims.ID, models.UserRole(claims.Role))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, unauthorized("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if len(roles) > 0 && !slices.Contains(roles, user.Role) {
		return nil, forbidden("Forbidden")
	}
	if user.Role == models.RoleUniversity && !user.Verified {
		return nil, forbidden("University account not verified")
	}
	return user, nil
}

// SendVerification stores a fresh pending code for a university address and
// returns it.
func (s *AuthService) SendVerification(ctx context.Context, email string) (string, error) {
	email = utils.NormalizeEmail(email)
	if !s.universityDomainOK(email) {
		return "", invalidInput("Invalid university domain")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)

	err = s.store.SaveVerification(ctx, &models.VerificationCode{
		Email:    email,
		Code:     code,
		IssuedAt: time.Now().UTC(),
		Status:   models.VerificationPending,
	})
	if err != nil {
		return "", fmt.Errorf("save verification: %w", err)
	}
	s.log.Info("Auth service: verification code issued", "email", email, "code", code)
	return code, nil
}

// VerifyCode confirms a pending code. A code works once.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) error {
	email = utils.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	v, err := s.store.FindVerification(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return invalidInput("Invalid or expired code")
	}
	if err != nil {
		return fmt.Errorf("lookup verification: %w", err)
	}
	now := time.Now().UTC()
	if v.Confirmed() || v.Expired(s.codeTTL, now) || v.Code != code {
		return invalidInput("Invalid or expired code")
	}

	v.Status = models.VerificationConfirmed
	v.ConfirmedAt = &now
	if err := s.store.SaveVerification(ctx, v); err != nil {
		return fmt.Errorf("save verification: %w", err)
	}
	return nil
}

func (s *AuthService) IsEmailVerified(ctx context.Context, email string) bool {
	v, err := s.store.FindVerification(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return false
	}
	return v.Confirmed()
}

// PurgeExpiredCodes drops pending codes older than the configured TTL.
func (s *AuthService) PurgeExpiredCodes(ctx context.Context) (int64, error) {
	if s.codeTTL <= 0 {
		return 0, nil
	}
	return s.store.DeleteExpiredVerifications(ctx, time.Now().UTC().Add(-s.codeTTL))
}

func (s *AuthService) PendingUniversities(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.store.ListUsers(ctx, models.RoleUniversity)
	if err != nil {
		return nil, fmt.Errorf("list universities: %w", err)
	}
	pending := make([]models.PublicUser, 0)
	for _, u := range users {
		if !u.Verified {
			pending = append(pending, u.Public())
		}
	}
	return pending, nil
}

func (s *AuthService) ApproveUniversity(ctx context.Context, userID int) error {
	user, err := s.store.FindUserByID(ctx, userID, models.RoleUniversity)
	if errors.Is(err, storage.ErrNotFound) {
		return notFound("user not found")
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	user.Verified = true
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("approve user: %w", err)
	}
	s.log.Info("Auth service: university approved", "id", user.ID, "email", user.Email)
	return nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	_, err := s.store.FindUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &models.User{
		Username:  strings.SplitN(email, "@", 2)[0],
		Email:     email,
		Password:  string(hash),
		Role:      models.RoleAdmin,
		Verified:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("Auth service: admin account created", "email", email)
	return nil
}
