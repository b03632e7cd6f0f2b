package models

import "time"

type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationConfirmed VerificationStatus = "confirmed"
)

// VerificationCode tracks the one-time code sent to a university address.
type VerificationCode struct {
	Email       string             `gorm:"primaryKey;size:150" json:"email"`
	Code        string             `gorm:"size:12;not null" json:"code"`
	IssuedAt    time.Time          `json:"issued_at"`
	Status      VerificationStatus `gorm:"size:20;not null" json:"status"`
	ConfirmedAt *time.Time         `json:"confirmed_at,omitempty"`
}

func (v VerificationCode) Confirmed() bool {
	return v.Status == VerificationConfirmed
}

// Expired reports whether a pending code is older than ttl. A zero ttl never expires.
func (v VerificationCode) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 || v.Status != VerificationPending {
		return false
	}
	return now.Sub(v.IssuedAt) > ttl
}
