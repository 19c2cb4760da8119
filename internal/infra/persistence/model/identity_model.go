// Package model holds the GORM row types of the relational credential store.
package model

import (
	"time"

	"github.com/google/uuid"
)

// IdentityModel mirrors the 'identities' table. Nullable columns are pointers
// so the unique index on external_subject_id only covers linked rows.
type IdentityModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email             string    `gorm:"type:varchar(320);uniqueIndex:idx_identities_email;not null"`
	PasswordHash      string    `gorm:"type:varchar(255)"`
	ExternalSubjectID *string   `gorm:"type:varchar(255);uniqueIndex:idx_identities_external_subject_id"`
	AuthProvider      string    `gorm:"type:varchar(20);not null"`
	ResetTokenHash    *string   `gorm:"type:varchar(64);index:idx_identities_reset_token_hash"`
	ResetTokenExpiry  *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName explicitly sets the table name for GORM.
func (IdentityModel) TableName() string {
	return "identities"
}
