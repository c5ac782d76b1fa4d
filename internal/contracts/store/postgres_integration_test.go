//go:build integration

package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rentaldocs/internal/contracts"
	"rentaldocs/internal/contracts/store"
	"rentaldocs/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	templates *store.PostgresTemplateStore
	records   *store.PostgresContractStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(),
		filepath.Join("..", "..", "..", "db", "migrations", "0001_init.sql"))
	s.templates = store.NewPostgresTemplateStore(s.postgres.DB)
	s.records = store.NewPostgresContractStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"contract_events", "contract_records", "contract_templates", "contract_parties")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newTemplate(name string, version int, status string) *contracts.TemplateRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &contracts.TemplateRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Version:   version,
		Status:    status,
		ObjectKey: name + "/1/abc.docx",
		SHA256:    "abc",
		SizeBytes: 1024,
		CreatedBy: "tester",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestTemplateRoundTrip() {
	ctx := context.Background()
	tpl := s.newTemplate("arriendo-standard", 1, contracts.TemplateActive)
	s.Require().NoError(s.templates.Insert(ctx, tpl))

	got, err := s.templates.GetByID(ctx, tpl.ID)
	s.Require().NoError(err)
	s.Equal(tpl.Name, got.Name)
	s.Equal(tpl.Status, got.Status)
	s.Equal(tpl.SHA256, got.SHA256)

	_, err = s.templates.GetByID(ctx, uuid.NewString())
	s.ErrorIs(err, store.ErrTemplateNotFound)
}

func (s *PostgresStoreSuite) TestSetActiveDeactivatesSiblings() {
	ctx := context.Background()
	v1 := s.newTemplate("arriendo-standard", 1, contracts.TemplateActive)
	v2 := s.newTemplate("arriendo-standard", 2, contracts.TemplateInactive)
	other := s.newTemplate("subarriendo", 1, contracts.TemplateActive)
	s.Require().NoError(s.templates.Insert(ctx, v1))
	s.Require().NoError(s.templates.Insert(ctx, v2))
	s.Require().NoError(s.templates.Insert(ctx, other))

	s.Require().NoError(s.templates.SetActive(ctx, v2.ID))

	got, err := s.templates.GetByID(ctx, v1.ID)
	s.Require().NoError(err)
	s.Equal(contracts.TemplateInactive, got.Status)

	got, err = s.templates.GetByID(ctx, v2.ID)
	s.Require().NoError(err)
	s.Equal(contracts.TemplateActive, got.Status)

	got, err = s.templates.GetByID(ctx, other.ID)
	s.Require().NoError(err)
	s.Equal(contracts.TemplateActive, got.Status)
}

func (s *PostgresStoreSuite) TestContractRoundTripAndIdempotencyLookup() {
	ctx := context.Background()
	tpl := s.newTemplate("arriendo-standard", 1, contracts.TemplateActive)
	s.Require().NoError(s.templates.Insert(ctx, tpl))

	now := time.Now().UTC().Truncate(time.Microsecond)
	record := &contracts.ContractRecord{
		ID:          uuid.NewString(),
		TemplateID:  tpl.ID,
		ActorID:     "user-1",
		Status:      contracts.ContractIssued,
		Fingerprint: "fp-1",
		ObjectKey:   "user-1/2026-02-26/fp-1.pdf",
		PDFSHA256:   "deadbeef",
		SizeBytes:   2048,
		Payload: contracts.Payload{
			Contract: contracts.ContractTerms{Type: contracts.TypeStandard, SigningCity: "Santiago"},
			Tenant:   contracts.Tenant{Name: "Ana Rojas", RUT: "12345678-5"},
		},
		Replacements: map[string]string{"[[TENANT.NAME]]": "Ana Rojas"},
		IssuedAt:     now,
	}
	s.Require().NoError(s.records.Insert(ctx, record))

	got, err := s.records.GetByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal("Ana Rojas", got.Payload.Tenant.Name)
	s.Equal("Ana Rojas", got.Replacements["[[TENANT.NAME]]"])

	found, err := s.records.FindRecentIssued(ctx, tpl.ID, "user-1", "fp-1", now.Add(-15*time.Minute))
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(record.ID, found.ID)

	found, err = s.records.FindRecentIssued(ctx, tpl.ID, "user-1", "fp-1", now.Add(time.Minute))
	s.Require().NoError(err)
	s.Nil(found)
}

func (s *PostgresStoreSuite) TestContractList() {
	ctx := context.Background()
	tpl := s.newTemplate("arriendo-standard", 1, contracts.TemplateActive)
	s.Require().NoError(s.templates.Insert(ctx, tpl))

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.records.Insert(ctx, &contracts.ContractRecord{
			ID:          uuid.NewString(),
			TemplateID:  tpl.ID,
			ActorID:     "user-1",
			Status:      contracts.ContractIssued,
			Fingerprint: uuid.NewString(),
			ObjectKey:   "k",
			PDFSHA256:   "h",
			SizeBytes:   1,
			Payload:     contracts.Payload{Tenant: contracts.Tenant{Name: "Ana"}},
			IssuedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.records.List(ctx, store.ContractListFilter{TemplateID: tpl.ID})
	s.Require().NoError(err)
	s.Len(all, 3)
	s.True(all[0].IssuedAt.After(all[2].IssuedAt))

	page, err := s.records.List(ctx, store.ContractListFilter{TemplateID: tpl.ID, Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Len(page, 1)
}
