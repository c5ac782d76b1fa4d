package parties

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore persists directory rows, upserting on the (role, rut) key.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, party Party) error {
	metadata, err := json.Marshal(party.Metadata)
	if err != nil {
		return fmt.Errorf("marshal party metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contract_parties
			(id, role, party_type, display_name, rut, email, phone, address, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (role, rut) DO UPDATE SET
			party_type = EXCLUDED.party_type,
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()`,
		uuid.NewString(), party.Role, party.PartyType, party.DisplayName, party.RUT,
		party.Email, party.Phone, party.Address, metadata,
	)
	if err != nil {
		return fmt.Errorf("upsert contract party: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRole(ctx context.Context, role string) ([]Party, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, party_type, display_name, rut, email, phone, address, metadata, created_at, updated_at
		FROM contract_parties WHERE role = $1 ORDER BY display_name`, role)
	if err != nil {
		return nil, fmt.Errorf("list contract parties: %w", err)
	}
	defer rows.Close()

	var out []Party
	for rows.Next() {
		var party Party
		var metadata []byte
		if err := rows.Scan(&party.ID, &party.Role, &party.PartyType, &party.DisplayName,
			&party.RUT, &party.Email, &party.Phone, &party.Address, &metadata,
			&party.CreatedAt, &party.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan contract party: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &party.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal party metadata: %w", err)
			}
		}
		out = append(out, party)
	}
	return out, rows.Err()
}
