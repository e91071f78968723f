package models

import (
	"gorm.io/gorm"
)

// User is the ledger's read-only view of the user directory. Accounts are
// managed by the identity service; the ledger only checks that owners exist.
type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null"`
	Email    string `gorm:"uniqueIndex;not null"`
	Role     string `gorm:"default:'USER'"`
	Status   string `gorm:"default:'active'"`
}
