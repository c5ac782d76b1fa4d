package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentaldocs/internal/contracts"
)

// PostgresTemplateStore persists templates in PostgreSQL.
type PostgresTemplateStore struct {
	db *sql.DB
}

func NewPostgresTemplateStore(db *sql.DB) *PostgresTemplateStore {
	return &PostgresTemplateStore{db: db}
}

func (s *PostgresTemplateStore) Insert(ctx context.Context, record *contracts.TemplateRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contract_templates
			(id, name, description, version, status, object_key, sha256, size_bytes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.Name, record.Description, record.Version, record.Status,
		record.ObjectKey, record.SHA256, record.SizeBytes, record.CreatedBy,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *PostgresTemplateStore) GetByID(ctx context.Context, id string) (*contracts.TemplateRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, version, status, object_key, sha256, size_bytes, created_by, created_at, updated_at
		FROM contract_templates WHERE id = $1`, id)
	record, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return record, nil
}

func (s *PostgresTemplateStore) List(ctx context.Context) ([]contracts.TemplateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, version, status, object_key, sha256, size_bytes, created_by, created_at, updated_at
		FROM contract_templates ORDER BY name, version DESC`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []contracts.TemplateRecord
	for rows.Next() {
		record, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		out = append(out, *record)
	}
	return out, rows.Err()
}

func (s *PostgresTemplateStore) SetActive(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set active template: %w", err)
	}
	defer tx.Rollback()

	var name string
	err = tx.QueryRowContext(ctx, `SELECT name FROM contract_templates WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTemplateNotFound
	}
	if err != nil {
		return fmt.Errorf("set active template: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE contract_templates
		SET status = CASE WHEN id = $1 THEN $2 ELSE $3 END, updated_at = NOW()
		WHERE name = $4`,
		id, contracts.TemplateActive, contracts.TemplateInactive, name)
	if err != nil {
		return fmt.Errorf("set active template: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*contracts.TemplateRecord, error) {
	var record contracts.TemplateRecord
	err := row.Scan(&record.ID, &record.Name, &record.Description, &record.Version,
		&record.Status, &record.ObjectKey, &record.SHA256, &record.SizeBytes,
		&record.CreatedBy, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PostgresContractStore persists issued contracts, payload and substitution
// map as JSONB.
type PostgresContractStore struct {
	db *sql.DB
}

func NewPostgresContractStore(db *sql.DB) *PostgresContractStore {
	return &PostgresContractStore{db: db}
}

func (s *PostgresContractStore) Insert(ctx context.Context, record *contracts.ContractRecord) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("marshal contract payload: %w", err)
	}
	replacements, err := json.Marshal(record.Replacements)
	if err != nil {
		return fmt.Errorf("marshal contract replacements: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contract_records
			(id, template_id, actor_id, status, fingerprint, object_key, pdf_sha256, size_bytes, payload, replacements, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.TemplateID, record.ActorID, record.Status, record.Fingerprint,
		record.ObjectKey, record.PDFSHA256, record.SizeBytes, payload, replacements, record.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

const contractColumns = `id, template_id, actor_id, status, fingerprint, object_key, pdf_sha256, size_bytes, payload, replacements, issued_at`

func (s *PostgresContractStore) GetByID(ctx context.Context, id string) (*contracts.ContractRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contract_records WHERE id = $1`, id)
	record, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return record, nil
}

func (s *PostgresContractStore) FindRecentIssued(ctx context.Context, templateID, actorID, fingerprint string, since time.Time) (*contracts.ContractRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contract_records
		WHERE template_id = $1 AND actor_id = $2 AND fingerprint = $3 AND status = $4 AND issued_at >= $5
		ORDER BY issued_at DESC LIMIT 1`,
		templateID, actorID, fingerprint, contracts.ContractIssued, since)
	record, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find recent contract: %w", err)
	}
	return record, nil
}

func (s *PostgresContractStore) List(ctx context.Context, filter ContractListFilter) ([]contracts.ContractRecord, error) {
	var conditions []string
	var args []any
	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.TemplateID != "" {
		add("template_id = $%d", filter.TemplateID)
	}
	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if !filter.IssuedFrom.IsZero() {
		add("issued_at >= $%d", filter.IssuedFrom)
	}
	if !filter.IssuedTo.IsZero() {
		add("issued_at <= $%d", filter.IssuedTo)
	}

	query := `SELECT ` + contractColumns + ` FROM contract_records`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY issued_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []contracts.ContractRecord
	for rows.Next() {
		record, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("list contracts: %w", err)
		}
		out = append(out, *record)
	}
	return out, rows.Err()
}

func scanContract(row rowScanner) (*contracts.ContractRecord, error) {
	var record contracts.ContractRecord
	var payload, replacements []byte
	err := row.Scan(&record.ID, &record.TemplateID, &record.ActorID, &record.Status,
		&record.Fingerprint, &record.ObjectKey, &record.PDFSHA256, &record.SizeBytes,
		&payload, &replacements, &record.IssuedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &record.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal contract payload: %w", err)
	}
	if len(replacements) > 0 {
		if err := json.Unmarshal(replacements, &record.Replacements); err != nil {
			return nil, fmt.Errorf("unmarshal contract replacements: %w", err)
		}
	}
	return &record, nil
}
