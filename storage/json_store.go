package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/vnkhanh/e-cert-backend/models"
)

const (
	usersFile         = "users.json"
	studentsFile      = "students.json"
	proofsFile        = "proofs.json"
	certificatesFile  = "certificates.json"
	templatesFile     = "templates.json"
	verificationsFile = "verifications.json"
)

// JSONStore keeps each kind in its own indented JSON file under a directory.
// Files are re-read on every call and replaced atomically on write.
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

// NewJSONStore creates the directory and any missing files.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &JSONStore{dir: dir}
	defaults := map[string]any{
		usersFile:         []models.User{},
		studentsFile:      []models.StudentRecord{},
		proofsFile:        []models.Proof{},
		certificatesFile:  []models.Certificate{},
		templatesFile:     map[string]models.Template{},
		verificationsFile: map[string]models.VerificationCode{},
	}
	for name, empty := range defaults {
		if _, err := os.Stat(filepath.Join(dir, name)); errors.Is(err, os.ErrNotExist) {
			if err := s.write(name, empty); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *JSONStore) read(name string, v any) error {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *JSONStore) write(name string, v any) error {
	filePath := filepath.Join(s.dir, name)
	tempPath := filePath + ".tmp"

	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tempPath, bytes, 0o644); err != nil {
		return err
	}
	return os.Rename(tempPath, filePath)
}

func (s *JSONStore) users() ([]models.User, error) {
	var users []models.User
	if err := s.read(usersFile, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *JSONStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users()
	if err != nil {
		return err
	}
	max := 0
	for _, existing := range users {
		if existing.Role == u.Role && existing.ID > max {
			max = existing.ID
		}
	}
	u.ID = max + 1
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return s.write(usersFile, append(users, *u))
}

func (s *JSONStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users()
	if err != nil {
		return nil, err
	}
	for _, role := range models.Roles {
		for i := range users {
			if users[i].Role == role && users[i].Email == email {
				return &users[i], nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *JSONStore) FindUserByID(_ context.Context, id int, role models.UserRole) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id && users[i].Role == role {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *JSONStore) ListUsers(_ context.Context, role models.UserRole) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users()
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *JSONStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == u.ID && users[i].Role == u.Role {
			users[i].Username = u.Username
			users[i].Password = u.Password
			users[i].Verified = u.Verified
			return s.write(usersFile, users)
		}
	}
	return ErrNotFound
}

func (s *JSONStore) students() ([]models.StudentRecord, error) {
	var out []models.StudentRecord
	if err := s.read(studentsFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *JSONStore) ListStudents(_ context.Context) ([]models.StudentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.students()
}

func (s *JSONStore) FindStudent(_ context.Context, id int) (*models.StudentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.students()
	if err != nil {
		return nil, err
	}
	for i := range students {
		if students[i].ID == id {
			return &students[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *JSONStore) InsertStudent(_ context.Context, rec *models.StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.students()
	if err != nil {
		return err
	}
	max := 0
	for _, st := range students {
		if st.ID > max {
			max = st.ID
		}
	}
	rec.ID = max + 1
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return s.write(studentsFile, append(students, *rec))
}

func (s *JSONStore) UpdateStudent(_ context.Context, rec *models.StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.students()
	if err != nil {
		return err
	}
	for i := range students {
		if students[i].ID == rec.ID {
			students[i] = *rec
			return s.write(studentsFile, students)
		}
	}
	return ErrNotFound
}

func (s *JSONStore) DeleteStudentsByUploader(_ context.Context, uploader string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.students()
	if err != nil {
		return nil, err
	}
	var deleted []int
	kept := make([]models.StudentRecord, 0, len(students))
	for _, st := range students {
		if st.UploadedBy == uploader {
			deleted = append(deleted, st.ID)
			continue
		}
		kept = append(kept, st)
	}
	if len(deleted) == 0 {
		return nil, nil
	}
	return deleted, s.write(studentsFile, kept)
}

func (s *JSONStore) proofs() ([]models.Proof, error) {
	var out []models.Proof
	if err := s.read(proofsFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *JSONStore) AppendProof(_ context.Context, p *models.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proofs, err := s.proofs()
	if err != nil {
		return err
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	return s.write(proofsFile, append(proofs, *p))
}

// LatestProof picks the greatest timestamp, later entries winning ties.
func (s *JSONStore) LatestProof(_ context.Context, studentID int) (*models.Proof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proofs, err := s.proofs()
	if err != nil {
		return nil, err
	}
	var latest *models.Proof
	for i := range proofs {
		p := &proofs[i]
		if p.StudentID != studentID {
			continue
		}
		if latest == nil || !p.Timestamp.Before(latest.Timestamp) {
			latest = p
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *JSONStore) DeleteProofsForStudents(_ context.Context, studentIDs []int) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	proofs, err := s.proofs()
	if err != nil {
		return 0, err
	}
	kept := make([]models.Proof, 0, len(proofs))
	for _, p := range proofs {
		if !slices.Contains(studentIDs, p.StudentID) {
			kept = append(kept, p)
		}
	}
	deleted := int64(len(proofs) - len(kept))
	if deleted == 0 {
		return 0, nil
	}
	return deleted, s.write(proofsFile, kept)
}

func (s *JSONStore) certificates() ([]models.Certificate, error) {
	var out []models.Certificate
	if err := s.read(certificatesFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *JSONStore) ListCertificates(_ context.Context) ([]models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.certificates()
}

func (s *JSONStore) FindCertificate(_ context.Context, certID int) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	certs, err := s.certificates()
	if err != nil {
		return nil, err
	}
	for i := range certs {
		if certs[i].CertID == certID {
			return &certs[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *JSONStore) SaveCertificate(_ context.Context, c *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	certs, err := s.certificates()
	if err != nil {
		return err
	}
	for i := range certs {
		if certs[i].CertID == c.CertID {
			certs[i] = *c
			return s.write(certificatesFile, certs)
		}
	}
	return s.write(certificatesFile, append(certs, *c))
}

func (s *JSONStore) DeleteCertificatesByIssuer(_ context.Context, issuer string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	certs, err := s.certificates()
	if err != nil {
		return 0, err
	}
	kept := make([]models.Certificate, 0, len(certs))
	for _, c := range certs {
		if c.IssuedBy != issuer {
			kept = append(kept, c)
		}
	}
	deleted := int64(len(certs) - len(kept))
	if deleted == 0 {
		return 0, nil
	}
	return deleted, s.write(certificatesFile, kept)
}

func (s *JSONStore) templates() (map[string]models.Template, error) {
	out := map[string]models.Template{}
	if err := s.read(templatesFile, &out); err != nil {
		return nil, err
	}
	for id, t := range out {
		t.ID = id
		out[id] = t
	}
	return out, nil
}

func (s *JSONStore) SaveTemplate(_ context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.templates()
	if err != nil {
		return err
	}
	templates[t.ID] = *t
	return s.write(templatesFile, templates)
}

func (s *JSONStore) ListTemplates(_ context.Context, uploadedBy string) ([]models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.templates()
	if err != nil {
		return nil, err
	}
	out := make([]models.Template, 0, len(templates))
	for _, t := range templates {
		if t.UploadedBy == uploadedBy {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *JSONStore) FindTemplate(_ context.Context, id string) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.templates()
	if err != nil {
		return nil, err
	}
	t, ok := templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *JSONStore) verifications() (map[string]models.VerificationCode, error) {
	out := map[string]models.VerificationCode{}
	if err := s.read(verificationsFile, &out); err != nil {
		return nil, err
	}
	for email, v := range out {
		v.Email = email
		if v.Status == "" {
			v.Status = models.VerificationPending
		}
		out[email] = v
	}
	return out, nil
}

func (s *JSONStore) SaveVerification(_ context.Context, v *models.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := s.verifications()
	if err != nil {
		return err
	}
	codes[v.Email] = *v
	return s.write(verificationsFile, codes)
}

func (s *JSONStore) FindVerification(_ context.Context, email string) (*models.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := s.verifications()
	if err != nil {
		return nil, err
	}
	v, ok := codes[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *JSONStore) DeleteExpiredVerifications(_ context.Context, issuedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := s.verifications()
	if err != nil {
		return 0, err
	}
	var deleted int64
	for email, v := range codes {
		if v.Status == models.VerificationPending && v.IssuedAt.Before(issuedBefore) {
			delete(codes, email)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, nil
	}
	return deleted, s.write(verificationsFile, codes)
}

// Ping checks the data directory is still reachable.
func (s *JSONStore) Ping(_ context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

func (s *JSONStore) Close() error {
	return nil
}
