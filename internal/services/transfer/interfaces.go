package transfer

import (
	"context"
	"time"

	"bankcards/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventSink accepts transfer-completed events without blocking.
type EventSink interface {
	Enqueue(event models.TransferEvent) error
}

// MetricsCollector records transfer outcomes.
type MetricsCollector interface {
	RecordTransfer(result string, duration time.Duration)
	RecordTransferVolume(amount float64)
}

// Service moves funds between two cards.
type Service interface {
	Transfer(ctx context.Context, sourceCardID, destinationCardID uuid.UUID, amount decimal.Decimal, description string) (*models.TransferRecord, error)
}
