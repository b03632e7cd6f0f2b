package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vnkhanh/e-cert-backend/logger"
	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/storage"
	"github.com/vnkhanh/e-cert-backend/utils"
)

type VerificationService struct {
	store  storage.Store
	tokens *utils.TokenManager
	log    *logger.Logger
}

func NewVerificationService(store storage.Store, tokens *utils.TokenManager, log *logger.Logger) *VerificationService {
	return &VerificationService{store: store, tokens: tokens, log: log}
}

// ProofCheck compares a student's current hash with the latest recorded proof.
type ProofCheck struct {
	Valid    bool          `json:"valid"`
	Proof    *models.Proof `json:"proof"`
	Expected string        `json:"expected"`
}

type TokenVerification struct {
	ProofCheck
	Certificate *models.Certificate   `json:"certificate"`
	Student     *models.StudentRecord `json:"-"`
	CertID      int                   `json:"-"`
}

func (s *VerificationService) check(ctx context.Context, student *models.StudentRecord) (ProofCheck, error) {
	res := ProofCheck{Expected: utils.HashRowData(student.Data)}
	proof, err := s.store.LatestProof(ctx, student.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("latest proof: %w", err)
	}
	res.Proof = proof
	res.Valid = proof.Hash == res.Expected
	return res, nil
}

func (s *VerificationService) student(ctx context.Context, id int) (*models.StudentRecord, error) {
	st, err := s.store.FindStudent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("Student not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup student: %w", err)
	}
	return st, nil
}

func (s *VerificationService) VerifyByStudent(ctx context.Context, studentID int) (*ProofCheck, error) {
	st, err := s.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	res, err := s.check(ctx, st)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// VerifyByToken decodes a certificate link token and checks the student it names.
func (s *VerificationService) VerifyByToken(ctx context.Context, token string) (*TokenVerification, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalidInput("token required")
	}
	claims, err := s.tokens.ParseCertificateToken(token)
	if err != nil {
		return nil, invalidInput("invalid or expired token")
	}

	st, err := s.student(ctx, claims.StudentID)
	if err != nil {
		return nil, err
	}
	check, err := s.check(ctx, st)
	if err != nil {
		return nil, err
	}

	res := &TokenVerification{ProofCheck: check, Student: st, CertID: claims.CertID}
	cert, err := s.store.FindCertificate(ctx, claims.CertID)
	switch {
	case err == nil:
		res.Certificate = cert
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("lookup certificate: %w", err)
	}
	return res, nil
}

// AddProof records the current hash of a student's data.
func (s *VerificationService) AddProof(ctx context.Context, studentID int, addedBy string) (*models.Proof, error) {
	st, err := s.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	proof := &models.Proof{
		StudentID: st.ID,
		Hash:      utils.HashRowData(st.Data),
		Timestamp: time.Now().UTC(),
		AddedBy:   addedBy,
	}
	if err := s.store.AppendProof(ctx, proof); err != nil {
		return nil, fmt.Errorf("append proof: %w", err)
	}
	return proof, nil
}

type SearchResult struct {
	Student  models.StudentRecord `json:"student"`
	Verified bool                 `json:"verified"`
	Proof    *models.Proof        `json:"proof"`
}

// Search matches q case-insensitively against each record's data and id.
func (s *VerificationService) Search(ctx context.Context, q string) ([]SearchResult, error) {
	q = strings.ToLower(q)
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	results := make([]SearchResult, 0)
	for i := range students {
		st := &students[i]
		if !matches(st, q) {
			continue
		}
		check, err := s.check(ctx, st)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Student: *st, Verified: check.Valid, Proof: check.Proof})
	}
	return results, nil
}

func matches(st *models.StudentRecord, q string) bool {
	if strings.Contains(strings.ToLower(utils.DisplayJSON(st.Data)), q) {
		return true
	}
	if strings.Contains(strconv.Itoa(st.ID), q) {
		return true
	}
	for _, k := range st.Data.Keys() {
		v, _ := st.Data.Get(k)
		if strings.Contains(strings.ToLower(k), q) || strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}
