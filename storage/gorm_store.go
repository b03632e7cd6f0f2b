package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/e-cert-backend/models"
)

// userTables maps each role to its own table.
var userTables = map[models.UserRole]string{
	models.RoleUniversity: "universities",
	models.RoleStudent:    "student_accounts",
	models.RoleEmployer:   "employers",
	models.RoleAdmin:      "admins",
}

// GormStore keeps everything in a SQL database through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the schema and returns the store.
func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	tx := db.WithContext(ctx)
	for _, role := range models.Roles {
		if err := tx.Table(userTables[role]).AutoMigrate(&models.User{}); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", userTables[role], err)
		}
	}
	err := tx.AutoMigrate(
		&models.StudentRecord{},
		&models.Proof{},
		&models.Certificate{},
		&models.Template{},
		&verificationRow{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// verificationRow pins the table name of verification codes.
type verificationRow models.VerificationCode

func (verificationRow) TableName() string { return "verifications" }

func userTable(role models.UserRole) (string, error) {
	t, ok := userTables[role]
	if !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return t, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) maxID(ctx context.Context, table, column string) (int, error) {
	var max int
	row := s.db.WithContext(ctx).Table(table).Select(fmt.Sprintf("COALESCE(MAX(%s), 0)", column)).Row()
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("max %s.%s: %w", table, column, err)
	}
	return max, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	table, err := userTable(u.Role)
	if err != nil {
		return err
	}
	max, err := s.maxID(ctx, table, "id")
	if err != nil {
		return err
	}
	u.ID = max + 1
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Table(table).Create(u).Error
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, role := range models.Roles {
		var u models.User
		err := s.db.WithContext(ctx).Table(userTables[role]).Where("email = ?", email).Take(&u).Error
		if err == nil {
			return &u, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (s *GormStore) FindUserByID(ctx context.Context, id int, role models.UserRole) (*models.User, error) {
	table, err := userTable(role)
	if err != nil {
		return nil, ErrNotFound
	}
	var u models.User
	if err := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) ListUsers(ctx context.Context, role models.UserRole) ([]models.User, error) {
	table, err := userTable(role)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Table(table).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser writes the mutable fields; role and email stay as created.
func (s *GormStore) UpdateUser(ctx context.Context, u *models.User) error {
	table, err := userTable(u.Role)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Table(table).Where("id = ?", u.ID).Updates(map[string]any{
		"username": u.Username,
		"password": u.Password,
		"verified": u.Verified,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListStudents(ctx context.Context) ([]models.StudentRecord, error) {
	var out []models.StudentRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) FindStudent(ctx context.Context, id int) (*models.StudentRecord, error) {
	var rec models.StudentRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (s *GormStore) InsertStudent(ctx context.Context, rec *models.StudentRecord) error {
	max, err := s.maxID(ctx, "student_records", "id")
	if err != nil {
		return err
	}
	rec.ID = max + 1
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *GormStore) UpdateStudent(ctx context.Context, rec *models.StudentRecord) error {
	res := s.db.WithContext(ctx).Model(&models.StudentRecord{}).Where("id = ?", rec.ID).Updates(map[string]any{
		"data":        rec.Data,
		"uploaded_by": rec.UploadedBy,
		"created_at":  rec.CreatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteStudentsByUploader(ctx context.Context, uploader string) ([]int, error) {
	var ids []int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.StudentRecord{}).Where("uploaded_by = ?", uploader).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Where("id IN ?", ids).Delete(&models.StudentRecord{}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *GormStore) AppendProof(ctx context.Context, p *models.Proof) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) LatestProof(ctx context.Context, studentID int) (*models.Proof, error) {
	var p models.Proof
	err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "timestamp"}, Desc: true},
			{Column: clause.Column{Name: "id"}, Desc: true},
		}}).
		Take(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *GormStore) DeleteProofsForStudents(ctx context.Context, studentIDs []int) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("student_id IN ?", studentIDs).Delete(&models.Proof{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) ListCertificates(ctx context.Context) ([]models.Certificate, error) {
	var out []models.Certificate
	if err := s.db.WithContext(ctx).Order("cert_id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) FindCertificate(ctx context.Context, certID int) (*models.Certificate, error) {
	var c models.Certificate
	if err := s.db.WithContext(ctx).Where("cert_id = ?", certID).Take(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *GormStore) SaveCertificate(ctx context.Context, c *models.Certificate) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(c).Error
}

func (s *GormStore) DeleteCertificatesByIssuer(ctx context.Context, issuer string) (int64, error) {
	res := s.db.WithContext(ctx).Where("issued_by = ?", issuer).Delete(&models.Certificate{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) SaveTemplate(ctx context.Context, t *models.Template) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(t).Error
}

func (s *GormStore) ListTemplates(ctx context.Context, uploadedBy string) ([]models.Template, error) {
	var out []models.Template
	err := s.db.WithContext(ctx).Where("uploaded_by = ?", uploadedBy).Order("uploaded_at").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) FindTemplate(ctx context.Context, id string) (*models.Template, error) {
	var t models.Template
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *GormStore) SaveVerification(ctx context.Context, v *models.VerificationCode) error {
	row := verificationRow(*v)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *GormStore) FindVerification(ctx context.Context, email string) (*models.VerificationCode, error) {
	var row verificationRow
	if err := s.db.WithContext(ctx).Where("email = ?", email).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	v := models.VerificationCode(row)
	return &v, nil
}

func (s *GormStore) DeleteExpiredVerifications(ctx context.Context, issuedBefore time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("status = ? AND issued_at < ?", models.VerificationPending, issuedBefore).
		Delete(&verificationRow{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
