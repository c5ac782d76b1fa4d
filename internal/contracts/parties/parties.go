// Package parties maintains a denormalized directory of the legal parties
// appearing in issued contracts, for downstream lookup. Derived data: the
// contract records stay authoritative.
package parties

import (
	"context"
	"fmt"
	"time"

	"rentaldocs/internal/contracts"
)

// Directory roles. Owner-sublease contracts collapse landlord and owner into
// a single landlord_owner row.
const (
	RoleLandlord               = "landlord"
	RoleLandlordOwner          = "landlord_owner"
	RoleLandlordRepresentative = "landlord_representative"
	RoleOwner                  = "owner"
	RoleTenant                 = "tenant"
	RoleTenantRepresentative   = "tenant_representative"
	RoleGuarantor              = "guarantor"
)

// Party is one directory row, upserted keyed on (role, RUT).
type Party struct {
	ID          string         `json:"id"`
	Role        string         `json:"role"`
	PartyType   string         `json:"partyType"`
	DisplayName string         `json:"displayName"`
	RUT         string         `json:"rut"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Address     string         `json:"address"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type Store interface {
	Upsert(ctx context.Context, party Party) error
	ListByRole(ctx context.Context, role string) ([]Party, error)
}

// Project extracts one row per present role from an issued contract payload.
func Project(record *contracts.ContractRecord) []Party {
	p := &record.Payload
	var out []Party

	landlordRole := RoleLandlord
	if p.Contract.Type == contracts.TypeOwnerSublease {
		landlordRole = RoleLandlordOwner
	}
	out = append(out, Party{
		Role:        landlordRole,
		PartyType:   p.Landlord.PersonType,
		DisplayName: p.Landlord.LegalName,
		RUT:         p.Landlord.RUT,
		Email:       p.Landlord.Email,
		Address:     p.Landlord.Address,
		Metadata:    map[string]any{"contractId": record.ID},
	})

	if p.Landlord.Representative != nil {
		out = append(out, Party{
			Role:        RoleLandlordRepresentative,
			PartyType:   contracts.PersonNatural,
			DisplayName: p.Landlord.Representative.Name,
			RUT:         p.Landlord.Representative.RUT,
			Metadata:    map[string]any{"contractId": record.ID},
		})
	}

	if p.Contract.Type != contracts.TypeOwnerSublease && p.Owner != nil {
		out = append(out, Party{
			Role:        RoleOwner,
			PartyType:   contracts.PersonNatural,
			DisplayName: p.Owner.Name,
			RUT:         p.Owner.RUT,
			Metadata:    map[string]any{"contractId": record.ID},
		})
	}

	out = append(out, Party{
		Role:        RoleTenant,
		PartyType:   p.Tenant.PersonType,
		DisplayName: p.Tenant.Name,
		RUT:         p.Tenant.RUT,
		Email:       p.Tenant.Email,
		Phone:       p.Tenant.Phone,
		Address:     p.Tenant.Address,
		Metadata:    map[string]any{"contractId": record.ID},
	})

	if p.Tenant.Representative != nil {
		out = append(out, Party{
			Role:        RoleTenantRepresentative,
			PartyType:   contracts.PersonNatural,
			DisplayName: p.Tenant.Representative.Name,
			RUT:         p.Tenant.Representative.RUT,
			Metadata:    map[string]any{"contractId": record.ID},
		})
	}

	if p.Guarantor != nil {
		out = append(out, Party{
			Role:        RoleGuarantor,
			PartyType:   contracts.PersonNatural,
			DisplayName: p.Guarantor.Name,
			RUT:         p.Guarantor.RUT,
			Address:     p.Guarantor.Address,
			Metadata:    map[string]any{"contractId": record.ID},
		})
	}

	return out
}

// Service projects and upserts the directory rows for an issued contract.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) ProjectContract(ctx context.Context, record *contracts.ContractRecord) error {
	for _, party := range Project(record) {
		if err := s.store.Upsert(ctx, party); err != nil {
			return fmt.Errorf("upsert party %s/%s: %w", party.Role, party.RUT, err)
		}
	}
	return nil
}
