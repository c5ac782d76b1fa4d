// Package events records the contract audit trail: every lifecycle action is
// appended to the database and published to a Kafka topic for downstream
// consumers.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeIssued     = "issued"
	TypeDownloaded = "downloaded"
	TypeVoided     = "voided"
	TypeSent       = "sent"
)

// Event is one append-only audit row.
type Event struct {
	ID         string         `json:"id"`
	ContractID string         `json:"contractId"`
	Type       string         `json:"type"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type Store interface {
	Append(ctx context.Context, event Event) error
	ListByContract(ctx context.Context, contractID string) ([]Event, error)
}

// Publisher pushes events to the message bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Service appends events fail-closed and publishes them best-effort: a failed
// append aborts the caller, a failed publish only logs.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

func NewService(store Store, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, publisher: publisher, logger: logger}
}

// Record persists the event and forwards it to the bus.
func (s *Service) Record(ctx context.Context, contractID, eventType string, metadata map[string]any) error {
	event := Event{
		ID:         uuid.NewString(),
		ContractID: contractID,
		Type:       eventType,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.store.Append(ctx, event); err != nil {
		return fmt.Errorf("append contract event: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("contract event publish failed",
				"contract_id", contractID,
				"event_type", eventType,
				"error", err)
		}
	}
	return nil
}

// ListByContract returns the audit trail for one contract.
func (s *Service) ListByContract(ctx context.Context, contractID string) ([]Event, error) {
	return s.store.ListByContract(ctx, contractID)
}
