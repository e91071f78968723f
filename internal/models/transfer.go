package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferStatus is the state of a transfer record. Only SUCCESS is
// persisted by the ledger; PENDING and FAILED are reserved.
type TransferStatus string

const (
	TransferStatusPending TransferStatus = "PENDING"
	TransferStatusSuccess TransferStatus = "SUCCESS"
	TransferStatusFailed  TransferStatus = "FAILED"
)

// Transfer is the immutable audit record of a committed funds movement.
// Owner ids are captured at commit time so history lookups need no joins.
type Transfer struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SourceCardID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"source_card_id"`
	DestinationCardID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"destination_card_id"`
	SourceOwnerID      uint            `gorm:"not null;index" json:"source_owner_id"`
	DestinationOwnerID uint            `gorm:"not null;index" json:"destination_owner_id"`
	Amount             decimal.Decimal `gorm:"type:decimal(19,2);not null" json:"amount"`
	Status             TransferStatus  `gorm:"type:varchar(16);not null" json:"status"`
	Timestamp          time.Time       `gorm:"not null;index" json:"timestamp"`
	Description        string          `gorm:"type:text" json:"description,omitempty"`

	SourceCard      *Card `gorm:"foreignKey:SourceCardID;constraint:OnDelete:RESTRICT" json:"-"`
	DestinationCard *Card `gorm:"foreignKey:DestinationCardID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (t *Transfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TransferRecord is the outward view of a transfer with masked card numbers.
type TransferRecord struct {
	ID                    uuid.UUID       `json:"id"`
	SourceCardID          uuid.UUID       `json:"source_card_id"`
	DestinationCardID     uuid.UUID       `json:"destination_card_id"`
	SourceCardMasked      string          `json:"source_card_masked"`
	DestinationCardMasked string          `json:"destination_card_masked"`
	Amount                decimal.Decimal `json:"amount"`
	Timestamp             time.Time       `json:"timestamp"`
	Status                TransferStatus  `json:"status"`
	Description           string          `json:"description,omitempty"`
}

func NewTransferRecord(t *Transfer, sourceMasked, destinationMasked string) TransferRecord {
	return TransferRecord{
		ID:                    t.ID,
		SourceCardID:          t.SourceCardID,
		DestinationCardID:     t.DestinationCardID,
		SourceCardMasked:      sourceMasked,
		DestinationCardMasked: destinationMasked,
		Amount:                t.Amount.Round(2),
		Timestamp:             t.Timestamp,
		Status:                t.Status,
		Description:           t.Description,
	}
}

// TransferEvent is published after a transfer commits. Delivery is
// at-least-once; consumers deduplicate by TransferID.
type TransferEvent struct {
	TransferID         uuid.UUID       `json:"transfer_id"`
	SourceOwnerID      uint            `json:"source_owner_id"`
	DestinationOwnerID uint            `json:"destination_owner_id"`
	SourceMasked       string          `json:"source_masked"`
	DestinationMasked  string          `json:"destination_masked"`
	Amount             decimal.Decimal `json:"amount"`
	Timestamp          time.Time       `json:"timestamp"`
	Status             TransferStatus  `json:"status"`
}
