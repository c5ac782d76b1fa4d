// Package store persists templates and issued contracts.
package store

import (
	"context"
	"time"

	"rentaldocs/internal/contracts"
)

// ErrNotFound is returned by Get operations when no row matches. Kept as a
// sentinel so callers can translate it into their own error shape.
type notFoundError string

func (e notFoundError) Error() string { return string(e) }

const (
	ErrTemplateNotFound = notFoundError("template not found")
	ErrContractNotFound = notFoundError("contract not found")
)

// ContractListFilter narrows contract listings.
type ContractListFilter struct {
	TemplateID string
	ActorID    string
	Status     string
	IssuedFrom time.Time
	IssuedTo   time.Time
	Limit      int
	Offset     int
}

type TemplateStore interface {
	Insert(ctx context.Context, record *contracts.TemplateRecord) error
	GetByID(ctx context.Context, id string) (*contracts.TemplateRecord, error)
	List(ctx context.Context) ([]contracts.TemplateRecord, error)
	// SetActive marks one template active and deactivates every sibling
	// sharing its name.
	SetActive(ctx context.Context, id string) error
}

type ContractStore interface {
	Insert(ctx context.Context, record *contracts.ContractRecord) error
	GetByID(ctx context.Context, id string) (*contracts.ContractRecord, error)
	// FindRecentIssued returns the newest issued contract matching the
	// fingerprint, template and actor, issued at or after since. Nil when
	// nothing matches.
	FindRecentIssued(ctx context.Context, templateID, actorID, fingerprint string, since time.Time) (*contracts.ContractRecord, error)
	List(ctx context.Context, filter ContractListFilter) ([]contracts.ContractRecord, error)
}
