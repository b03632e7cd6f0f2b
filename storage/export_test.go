package storage

import "gorm.io/gorm"

// NewUnmigratedGormStore wraps db without touching the schema.
func NewUnmigratedGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}
