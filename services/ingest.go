package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vnkhanh/e-cert-backend/logger"
	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/storage"
	"github.com/vnkhanh/e-cert-backend/utils"
)

const (
	DuplicateUpdate = "update"
	DuplicateSkip   = "skip"
)

// ProgressPublisher fans upload progress out to a university's listeners.
type ProgressPublisher interface {
	Publish(key string, v any)
}

type IngestService struct {
	store  storage.Store
	certs  *CertificateService
	events ProgressPublisher
	log    *logger.Logger
}

// NewIngestService builds the roster pipeline. events may be nil.
func NewIngestService(store storage.Store, certs *CertificateService, events ProgressPublisher, log *logger.Logger) *IngestService {
	return &IngestService{store: store, certs: certs, events: events, log: log}
}

type UploadInput struct {
	Uploader        string
	CSV             io.Reader
	TemplateID      string
	ClearPrevious   bool
	DuplicateAction string
}

// CertificateOutcome is either the stored certificate or the render error.
type CertificateOutcome struct {
	*models.Certificate
	Error string `json:"error,omitempty"`
}

type RowResult struct {
	Student      models.StudentRecord `json:"student"`
	Proof        models.Proof         `json:"proof"`
	Certificate  CertificateOutcome   `json:"certificate"`
	WasDuplicate bool                 `json:"was_duplicate"`
}

type UploadStatistics struct {
	TotalCertificatesInSystem int    `json:"total_certificates_in_system"`
	CertificatesBeforeUpload  int    `json:"certificates_before_upload"`
	NewCertificatesCreated    int    `json:"new_certificates_created"`
	CertificatesUpdated       int    `json:"certificates_updated"`
	StudentsProcessed         int    `json:"students_processed"`
	DuplicateActionUsed       string `json:"duplicate_action_used"`
}

type UploadResult struct {
	Uploaded   int              `json:"uploaded"`
	Rows       []RowResult      `json:"rows"`
	Statistics UploadStatistics `json:"statistics"`
}

type uploadEvent struct {
	Type      string `json:"type"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	StudentID int    `json:"student_id,omitempty"`
	CertID    int    `json:"cert_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *IngestService) emit(key string, ev uploadEvent) {
	if s.events != nil {
		s.events.Publish(key, ev)
	}
}

// Upload processes a CSV roster row by row: upsert the student by email,
// append a proof, then (re)issue the certificate.
func (s *IngestService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	action := strings.ToLower(strings.TrimSpace(in.DuplicateAction))
	if action == "" {
		action = DuplicateUpdate
	}
	if action != DuplicateUpdate && action != DuplicateSkip {
		return nil, invalidInput("duplicate_action must be %q or %q", DuplicateUpdate, DuplicateSkip)
	}
	if in.CSV == nil {
		return nil, invalidInput("No file provided")
	}
	if in.TemplateID != "" {
		if _, err := s.store.FindTemplate(ctx, in.TemplateID); errors.Is(err, storage.ErrNotFound) {
			return nil, invalidInput("unknown template_id %q", in.TemplateID)
		} else if err != nil {
			return nil, err
		}
	}

	rows, err := utils.ParseRoster(in.CSV)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCSV) {
			return nil, invalidInput("%s", err.Error())
		}
		return nil, err
	}

	if in.ClearPrevious {
		if _, err := s.ClearUniversity(ctx, in.Uploader); err != nil {
			return nil, err
		}
	}

	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	byEmail := make(map[string]models.StudentRecord, len(students))
	for _, st := range students {
		if email := utils.ExtractEmail(st.Data); email != "" {
			if _, seen := byEmail[email]; !seen {
				byEmail[email] = st
			}
		}
	}

	certs, err := s.store.ListCertificates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	certByStudent := make(map[int]int, len(certs))
	maxCertID := 0
	for _, c := range certs {
		if _, seen := certByStudent[c.StudentID]; !seen {
			certByStudent[c.StudentID] = c.CertID
		}
		if c.CertID > maxCertID {
			maxCertID = c.CertID
		}
	}

	result := &UploadResult{Rows: make([]RowResult, 0, len(rows))}
	stats := &result.Statistics
	stats.CertificatesBeforeUpload = len(certs)
	stats.DuplicateActionUsed = action

	for i, row := range rows {
		email := utils.ExtractEmail(row)
		existing, duplicate := byEmail[email]
		if duplicate && action == DuplicateSkip {
			s.emit(in.Uploader, uploadEvent{Type: "row_skipped", Processed: i + 1, Total: len(rows), StudentID: existing.ID})
			continue
		}

		var stored models.StudentRecord
		if duplicate {
			stored = existing
			stored.Data = row
			stored.UploadedBy = in.Uploader
			if err := s.store.UpdateStudent(ctx, &stored); err != nil {
				return nil, fmt.Errorf("update student %d: %w", stored.ID, err)
			}
		} else {
			stored = models.StudentRecord{Data: row, UploadedBy: in.Uploader, CreatedAt: time.Now().UTC()}
			if err := s.store.InsertStudent(ctx, &stored); err != nil {
				return nil, fmt.Errorf("insert student: %w", err)
			}
		}
		if email != "" {
			byEmail[email] = stored
		}

		proof := models.Proof{
			StudentID: stored.ID,
			Hash:      utils.HashRowData(stored.Data),
			Timestamp: time.Now().UTC(),
		}
		if err := s.store.AppendProof(ctx, &proof); err != nil {
			return nil, fmt.Errorf("append proof: %w", err)
		}

		// Only an updated duplicate keeps its cert_id. A fresh row may land on the
		// student_id of an orphaned certificate and must not take it over.
		certID, reuse := 0, false
		if duplicate {
			certID, reuse = certByStudent[stored.ID]
		}
		if !reuse {
			certID = maxCertID + 1
		}

		rr := RowResult{Student: stored, Proof: proof, WasDuplicate: duplicate}
		cert, err := s.certs.Issue(ctx, stored, certID, in.Uploader)
		if err != nil {
			s.log.Error("Ingest service: certificate generation failed", "student_id", stored.ID, "cert_id", certID, "error", err)
			rr.Certificate.Error = err.Error()
		} else {
			rr.Certificate.Certificate = cert
			certByStudent[stored.ID] = certID
			if certID > maxCertID {
				maxCertID = certID
			}
			if reuse {
				stats.CertificatesUpdated++
			} else {
				stats.NewCertificatesCreated++
			}
		}
		result.Rows = append(result.Rows, rr)

		s.emit(in.Uploader, uploadEvent{
			Type:      "row_processed",
			Processed: i + 1,
			Total:     len(rows),
			StudentID: stored.ID,
			CertID:    certID,
			Error:     rr.Certificate.Error,
		})
		s.log.Debug("Ingest service: row processed", "student_id", stored.ID, "cert_id", certID, "duplicate", duplicate)
	}

	after, err := s.store.ListCertificates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	result.Uploaded = len(result.Rows)
	stats.StudentsProcessed = len(result.Rows)
	stats.TotalCertificatesInSystem = len(after)

	s.emit(in.Uploader, uploadEvent{Type: "upload_complete", Processed: len(rows), Total: len(rows)})
	s.log.Info("Ingest service: upload finished",
		"uploader", in.Uploader,
		"rows", len(rows),
		"processed", result.Uploaded,
		"new", stats.NewCertificatesCreated,
		"updated", stats.CertificatesUpdated,
	)
	return result, nil
}

type ClearResult struct {
	Certificates int64 `json:"certificates"`
	Students     int64 `json:"students"`
	Proofs       int64 `json:"proofs"`
}

// ClearUniversity deletes the certificates, student records and proofs owned
// by uploader. The steps are not atomic.
func (s *IngestService) ClearUniversity(ctx context.Context, uploader string) (*ClearResult, error) {
	certs, err := s.store.DeleteCertificatesByIssuer(ctx, uploader)
	if err != nil {
		return nil, fmt.Errorf("delete certificates: %w", err)
	}
	ids, err := s.store.DeleteStudentsByUploader(ctx, uploader)
	if err != nil {
		return nil, fmt.Errorf("delete students: %w", err)
	}
	proofs, err := s.store.DeleteProofsForStudents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("delete proofs: %w", err)
	}
	s.log.Info("Ingest service: university data cleared", "uploader", uploader, "certificates", certs, "students", len(ids), "proofs", proofs)
	return &ClearResult{Certificates: certs, Students: int64(len(ids)), Proofs: proofs}, nil
}

// Records lists the student records uploaded by uploader.
func (s *IngestService) Records(ctx context.Context, uploader string) ([]models.StudentRecord, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	out := make([]models.StudentRecord, 0)
	for _, st := range students {
		if st.UploadedBy == uploader {
			out = append(out, st)
		}
	}
	return out, nil
}
