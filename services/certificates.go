package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/vnkhanh/e-cert-backend/logger"
	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/storage"
	"github.com/vnkhanh/e-cert-backend/utils"
)

// Mailer delivers a file as an email attachment.
type Mailer interface {
	Enabled() bool
	SendWithAttachment(to, subject, body, path string) error
}

// AssetMirror publishes a copy of a generated file and returns its public URL.
type AssetMirror interface {
	Upload(objectPath string, data []byte, contentType string) (string, error)
}

type CertificateService struct {
	store    storage.Store
	renderer Renderer
	links    *LinkBuilder
	mailer   Mailer
	mirror   AssetMirror
	dataDir  string
	log      *logger.Logger
}

// NewCertificateService wires the certificate pipeline. mailer and mirror may be nil.
func NewCertificateService(store storage.Store, renderer Renderer, links *LinkBuilder, mailer Mailer, mirror AssetMirror, dataDir string, log *logger.Logger) *CertificateService {
	return &CertificateService{
		store:    store,
		renderer: renderer,
		links:    links,
		mailer:   mailer,
		mirror:   mirror,
		dataDir:  dataDir,
		log:      log,
	}
}

func (s *CertificateService) absPath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(s.dataDir, filepath.FromSlash(file))
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// Issue renders the certificate for student under certID, tries to mail and
// mirror it, and stores the record. An existing record with the same cert_id
// is replaced.
func (s *CertificateService) Issue(ctx context.Context, student models.StudentRecord, certID int, issuer string) (*models.Certificate, error) {
	file, err := s.renderer.Render(ctx, student, certID)
	if err != nil {
		return nil, err
	}
	cert := &models.Certificate{
		CertID:      certID,
		StudentID:   student.ID,
		File:        file,
		GeneratedAt: time.Now().UTC(),
		IssuedBy:    issuer,
	}

	s.deliver(cert, student, "Your Certificate")
	s.publish(cert)

	if err := s.store.SaveCertificate(ctx, cert); err != nil {
		return nil, fmt.Errorf("save certificate: %w", err)
	}
	return cert, nil
}

// deliver mails the certificate to the address found in the student's data.
// Failures only leave the delivery fields empty.
func (s *CertificateService) deliver(cert *models.Certificate, student models.StudentRecord, subject string) bool {
	to := utils.ExtractEmail(student.Data)
	if to == "" || s.mailer == nil || !s.mailer.Enabled() {
		return false
	}
	p := s.absPath(cert.File)
	if !fileExists(p) {
		return false
	}
	if err := s.mailer.SendWithAttachment(to, subject, "Please find your certificate attached.", p); err != nil {
		s.log.Warn("Certificate service: email not sent", "cert_id", cert.CertID, "to", to, "error", err)
		return false
	}
	now := time.Now().UTC()
	cert.EmailedTo = &to
	cert.EmailedAt = &now
	return true
}

func (s *CertificateService) publish(cert *models.Certificate) {
	if s.mirror == nil {
		return
	}
	data, err := os.ReadFile(s.absPath(cert.File))
	if err != nil {
		s.log.Warn("Certificate service: mirror skipped", "cert_id", cert.CertID, "error", err)
		return
	}
	publicURL, err := s.mirror.Upload(path.Base(filepath.ToSlash(cert.File)), data, "text/html; charset=utf-8")
	if err != nil {
		s.log.Warn("Certificate service: mirror upload failed", "cert_id", cert.CertID, "error", err)
		return
	}
	cert.PublicURL = publicURL
}

func (s *CertificateService) ListByIssuer(ctx context.Context, issuer string) ([]models.Certificate, error) {
	certs, err := s.store.ListCertificates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	out := make([]models.Certificate, 0)
	for _, c := range certs {
		if c.IssuedBy == issuer {
			out = append(out, c)
		}
	}
	return out, nil
}

// StudentCertificate is a certificate together with the roster row it was issued for.
type StudentCertificate struct {
	models.Certificate
	StudentData     models.RowData `json:"student_data"`
	StudentRecordID int            `json:"student_record_id"`
}

// ForStudentEmail returns every certificate whose student row carries email.
func (s *CertificateService) ForStudentEmail(ctx context.Context, email string) ([]StudentCertificate, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, invalidInput("No email provided")
	}
	certs, err := s.store.ListCertificates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}

	out := make([]StudentCertificate, 0)
	for _, c := range certs {
		student, err := s.store.FindStudent(ctx, c.StudentID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup student: %w", err)
		}
		if utils.ExtractEmail(student.Data) != email {
			continue
		}
		out = append(out, StudentCertificate{
			Certificate:     c,
			StudentData:     student.Data,
			StudentRecordID: student.ID,
		})
	}
	return out, nil
}

// Resend mails an existing certificate again. The bool reports delivery.
func (s *CertificateService) Resend(ctx context.Context, certID int) (bool, error) {
	cert, err := s.store.FindCertificate(ctx, certID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, notFound("certificate not found")
	}
	if err != nil {
		return false, err
	}
	student, err := s.store.FindStudent(ctx, cert.StudentID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, notFound("student not found")
	}
	if err != nil {
		return false, err
	}
	if !s.deliver(cert, *student, "Your certificate") {
		return false, nil
	}
	if err := s.store.SaveCertificate(ctx, cert); err != nil {
		return true, fmt.Errorf("save certificate: %w", err)
	}
	return true, nil
}

// Resolve returns the on-disk path of a certificate, repairing the record
// when the file moved into the certs directory and regenerating the document
// when it is gone entirely.
func (s *CertificateService) Resolve(ctx context.Context, certID int) (string, error) {
	cert, err := s.store.FindCertificate(ctx, certID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", notFound("certificate not found")
	}
	if err != nil {
		return "", err
	}
	stored := strings.ReplaceAll(cert.File, "\\", "/")
	if stored == "" {
		return "", notFound("file path not found in certificate record")
	}

	if p := s.absPath(stored); fileExists(p) {
		return p, nil
	}

	alt := "certs/" + path.Base(stored)
	if p := s.absPath(alt); fileExists(p) {
		cert.File = alt
		if err := s.store.SaveCertificate(ctx, cert); err != nil {
			s.log.Warn("Certificate service: could not update file path", "cert_id", certID, "error", err)
		}
		return p, nil
	}

	s.log.Info("Certificate service: file missing, regenerating", "cert_id", certID)
	student, err := s.store.FindStudent(ctx, cert.StudentID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", notFound("Student record not found for regeneration")
	}
	if err != nil {
		return "", err
	}
	file, err := s.renderer.Render(ctx, *student, certID)
	if err != nil {
		return "", fmt.Errorf("Certificate file missing and regeneration failed: %w", err)
	}
	cert.File = file
	if err := s.store.SaveCertificate(ctx, cert); err != nil {
		s.log.Warn("Certificate service: could not update file path", "cert_id", certID, "error", err)
	}
	return s.absPath(file), nil
}

type QRCode struct {
	QRBase64 string `json:"qr_base64"`
	URL      string `json:"url"`
}

// GenerateQR builds the verification QR for a student. Without certID the
// student's highest cert_id is used.
func (s *CertificateService) GenerateQR(ctx context.Context, studentID, certID int) (*QRCode, error) {
	if _, err := s.store.FindStudent(ctx, studentID); errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("Student not found")
	} else if err != nil {
		return nil, err
	}

	if certID == 0 {
		certs, err := s.store.ListCertificates(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range certs {
			if c.StudentID == studentID && c.CertID > certID {
				certID = c.CertID
			}
		}
	}
	if certID == 0 {
		return nil, notFound("No certificate found for this student")
	}

	link, err := s.links.VerificationURL(studentID, certID)
	if err != nil {
		return nil, err
	}
	b64, err := utils.QRCodeBase64(link, 300)
	if err != nil {
		return nil, err
	}
	return &QRCode{QRBase64: b64, URL: link}, nil
}
