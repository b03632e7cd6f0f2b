package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Proof is an append-only hash of a student's data at a point in time.
type Proof struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	StudentID int       `gorm:"index;not null" json:"student_id"`
	Hash      string    `gorm:"size:64;not null" json:"hash"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	AddedBy   string    `gorm:"size:150" json:"added_by,omitempty"`
}

type Certificate struct {
	CertID      int        `gorm:"primaryKey;autoIncrement:false" json:"cert_id"`
	StudentID   int        `gorm:"index;not null" json:"student_id"`
	File        string     `gorm:"type:text" json:"file"`
	GeneratedAt time.Time  `json:"generated_at"`
	IssuedBy    string     `gorm:"size:150;index" json:"issued_by"`
	EmailedTo   *string    `gorm:"size:150" json:"emailed_to"`
	EmailedAt   *time.Time `json:"emailed_at,omitempty"`
	PublicURL   string     `gorm:"type:text" json:"public_url,omitempty"`
}

// Number is the human readable certificate number printed on documents.
func (c Certificate) Number() string {
	return CertificateNumber(c.CertID)
}

func CertificateNumber(certID int) string {
	return fmt.Sprintf("CERT-%06d", certID)
}

// Template is an uploaded certificate background with field positions.
type Template struct {
	ID         string            `gorm:"primaryKey;size:36" json:"id"`
	Filename   string            `gorm:"size:255;not null" json:"filename"`
	Layout     datatypes.JSONMap `json:"layout"`
	UploadedBy string            `gorm:"size:150;index" json:"uploaded_by"`
	UploadedAt time.Time         `json:"uploaded_at"`
	PublicURL  string            `gorm:"type:text" json:"public_url,omitempty"`
}
