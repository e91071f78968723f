package models

import (
	"time"

	apperrors "bankcards/internal/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CardStatus is the lifecycle state of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// ParseCardStatus converts a requested status into a CardStatus.
// Matching is exact; anything outside the enum is an INVALID_CARD_STATUS error.
func ParseCardStatus(value string) (CardStatus, error) {
	switch s := CardStatus(value); s {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired:
		return s, nil
	default:
		return "", apperrors.InvalidCardStatus(value)
	}
}

// Card is a virtual bank card. The PAN is only ever held as ciphertext.
type Card struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EncryptedPAN string          `gorm:"column:encrypted_pan;type:text;not null" json:"-"`
	OwnerID      uint            `gorm:"not null;index" json:"owner_id"`
	HolderName   string          `gorm:"not null" json:"holder_name"`
	ExpiryDate   time.Time       `gorm:"type:date;not null" json:"expiry_date"`
	Status       CardStatus      `gorm:"type:varchar(16);not null;default:'ACTIVE';index" json:"status"`
	Balance      decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CardStatusActive
	}
	return nil
}

// CardView is the outward representation of a card with the PAN masked.
type CardView struct {
	ID               uuid.UUID       `json:"id"`
	OwnerID          uint            `json:"owner_id"`
	MaskedCardNumber string          `json:"masked_card_number"`
	HolderName       string          `json:"holder_name"`
	ExpiryDate       string          `json:"expiry_date"`
	Status           CardStatus      `json:"status"`
	Balance          decimal.Decimal `json:"balance"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ExpiryLayout is the MM/YY format cards are created and displayed with.
const ExpiryLayout = "01/06"

// NewCardView builds the display view of a card from its masked PAN.
func NewCardView(card *Card, masked string) CardView {
	return CardView{
		ID:               card.ID,
		OwnerID:          card.OwnerID,
		MaskedCardNumber: masked,
		HolderName:       card.HolderName,
		ExpiryDate:       card.ExpiryDate.Format(ExpiryLayout),
		Status:           card.Status,
		Balance:          card.Balance.Round(2),
		CreatedAt:        card.CreatedAt,
	}
}
