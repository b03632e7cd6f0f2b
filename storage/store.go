package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vnkhanh/e-cert-backend/models"
)

var ErrNotFound = errors.New("not found")

// Store is the only way the rest of the service reaches persistent state.
// Integer ids are allocated as max(existing)+1 per kind (per role for users).
type Store interface {
	// Users live in one partition per role; an id is unique only within its role.
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id int, role models.UserRole) (*models.User, error)
	ListUsers(ctx context.Context, role models.UserRole) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error

	ListStudents(ctx context.Context) ([]models.StudentRecord, error)
	FindStudent(ctx context.Context, id int) (*models.StudentRecord, error)
	InsertStudent(ctx context.Context, s *models.StudentRecord) error
	UpdateStudent(ctx context.Context, s *models.StudentRecord) error
	DeleteStudentsByUploader(ctx context.Context, uploader string) ([]int, error)

	// Proofs are append-only. LatestProof returns the newest by timestamp.
	AppendProof(ctx context.Context, p *models.Proof) error
	LatestProof(ctx context.Context, studentID int) (*models.Proof, error)
	DeleteProofsForStudents(ctx context.Context, studentIDs []int) (int64, error)

	ListCertificates(ctx context.Context) ([]models.Certificate, error)
	FindCertificate(ctx context.Context, certID int) (*models.Certificate, error)
	// SaveCertificate inserts or replaces by cert_id.
	SaveCertificate(ctx context.Context, c *models.Certificate) error
	DeleteCertificatesByIssuer(ctx context.Context, issuer string) (int64, error)

	SaveTemplate(ctx context.Context, t *models.Template) error
	ListTemplates(ctx context.Context, uploadedBy string) ([]models.Template, error)
	FindTemplate(ctx context.Context, id string) (*models.Template, error)

	SaveVerification(ctx context.Context, v *models.VerificationCode) error
	FindVerification(ctx context.Context, email string) (*models.VerificationCode, error)
	DeleteExpiredVerifications(ctx context.Context, issuedBefore time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
