package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contract_events (id, contract_id, event_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.ContractID, event.Type, metadata, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contract event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByContract(ctx context.Context, contractID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, event_type, metadata, created_at
		FROM contract_events WHERE contract_id = $1 ORDER BY created_at`, contractID)
	if err != nil {
		return nil, fmt.Errorf("list contract events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var event Event
		var metadata []byte
		if err := rows.Scan(&event.ID, &event.ContractID, &event.Type, &metadata, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contract event: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
