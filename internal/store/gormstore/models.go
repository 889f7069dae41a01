package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account represents the accounts table.
type Account struct {
	UUID         string    `gorm:"type:uuid;primaryKey"`
	BalanceCents uint64    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

func (account *Account) BeforeCreate(tx *gorm.DB) error {
	if account.UUID == "" {
		account.UUID = uuid.NewString()
	}
	return nil
}
