package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent    UserRole = "student"    // Student looking up their own certificates
	RoleUniversity UserRole = "university" // Issuer, uploads rosters
	RoleEmployer   UserRole = "employer"   // Verifier
	RoleAdmin      UserRole = "admin"      // Approves university accounts
)

// Roles lists every role in the order user partitions are searched.
var Roles = []UserRole{RoleUniversity, RoleStudent, RoleEmployer, RoleAdmin}

func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleUniversity, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

// User ids are unique within a role partition only, so a user is addressed by (id, role).
type User struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username  string    `gorm:"size:150;not null" json:"username"`
	Email     string    `gorm:"size:150;not null" json:"email"`
	Password  string    `gorm:"type:text;not null" json:"password"`
	Role      UserRole  `gorm:"type:varchar(20);not null" json:"role"`
	Verified  bool      `gorm:"not null;default:false" json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}
