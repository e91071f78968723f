package card

import (
	"context"
	"time"

	"bankcards/internal/models"

	"github.com/google/uuid"
)

// Encrypter seals a plaintext PAN for storage.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// MetricsCollector records card operation outcomes.
type MetricsCollector interface {
	RecordCardOperation(operation, result string)
}

// CreateRequest carries the fields needed to issue a card.
type CreateRequest struct {
	OwnerID    uint
	CardNumber string
	HolderName string
	ExpiryDate string // MM/YY
}

// Service manages the card lifecycle.
type Service interface {
	CreateCard(ctx context.Context, req CreateRequest) (*models.CardView, error)
	GetCard(ctx context.Context, cardID uuid.UUID) (*models.CardView, error)
	ListCards(ctx context.Context, ownerID uint, offset, limit int) ([]models.CardView, int64, error)
	UpdateCardStatus(ctx context.Context, cardID uuid.UUID, status string) (*models.CardView, error)
	BlockCard(ctx context.Context, cardID uuid.UUID) (*models.CardView, error)
	DeleteCard(ctx context.Context, cardID uuid.UUID) error

	// ExpireCard marks the card EXPIRED if its expiry date is before asOf.
	// It reports whether the status changed.
	ExpireCard(ctx context.Context, cardID uuid.UUID, asOf time.Time) (bool, error)
}

type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordCardOperation(string, string) {}
