package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionModel mirrors the 'sessions' table.
type SessionModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	IdentityID uuid.UUID `gorm:"type:uuid;not null;index:idx_sessions_identity_id"`
	TokenHash  string    `gorm:"type:varchar(64);uniqueIndex:idx_sessions_token_hash;not null"`
	ExpiresAt  time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}
