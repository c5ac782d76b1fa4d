package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentaldocs/internal/contracts"
)

func TestInMemoryTemplateStoreSetActive(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryTemplateStore()

	require.NoError(t, s.Insert(ctx, &contracts.TemplateRecord{
		ID: "t1", Name: "arriendo-standard", Version: 1, Status: contracts.TemplateActive,
	}))
	require.NoError(t, s.Insert(ctx, &contracts.TemplateRecord{
		ID: "t2", Name: "arriendo-standard", Version: 2, Status: contracts.TemplateInactive,
	}))
	require.NoError(t, s.Insert(ctx, &contracts.TemplateRecord{
		ID: "t3", Name: "subarriendo", Version: 1, Status: contracts.TemplateActive,
	}))

	require.NoError(t, s.SetActive(ctx, "t2"))

	t1, err := s.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, contracts.TemplateInactive, t1.Status)

	t2, err := s.GetByID(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, contracts.TemplateActive, t2.Status)

	// Other names are untouched.
	t3, err := s.GetByID(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, contracts.TemplateActive, t3.Status)

	assert.ErrorIs(t, s.SetActive(ctx, "missing"), ErrTemplateNotFound)
}

func TestInMemoryContractStoreFindRecentIssued(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryContractStore()
	now := time.Now().UTC()

	require.NoError(t, s.Insert(ctx, &contracts.ContractRecord{
		ID: "c1", TemplateID: "t1", ActorID: "u1", Fingerprint: "fp",
		Status: contracts.ContractIssued, IssuedAt: now.Add(-30 * time.Minute),
	}))
	require.NoError(t, s.Insert(ctx, &contracts.ContractRecord{
		ID: "c2", TemplateID: "t1", ActorID: "u1", Fingerprint: "fp",
		Status: contracts.ContractIssued, IssuedAt: now.Add(-5 * time.Minute),
	}))
	require.NoError(t, s.Insert(ctx, &contracts.ContractRecord{
		ID: "c3", TemplateID: "t1", ActorID: "u2", Fingerprint: "fp",
		Status: contracts.ContractIssued, IssuedAt: now,
	}))

	found, err := s.FindRecentIssued(ctx, "t1", "u1", "fp", now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c2", found.ID)

	// Outside the window.
	found, err = s.FindRecentIssued(ctx, "t1", "u1", "fp", now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Nil(t, found)

	// Different fingerprint.
	found, err = s.FindRecentIssued(ctx, "t1", "u1", "other", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestInMemoryContractStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryContractStore()
	now := time.Now().UTC()

	for i, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, s.Insert(ctx, &contracts.ContractRecord{
			ID: id, TemplateID: "t1", ActorID: "u1",
			Status:   contracts.ContractIssued,
			IssuedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Insert(ctx, &contracts.ContractRecord{
		ID: "c4", TemplateID: "t2", ActorID: "u1",
		Status: contracts.ContractIssued, IssuedAt: now,
	}))

	all, err := s.List(ctx, ContractListFilter{TemplateID: "t1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c3", all[0].ID, "newest first")

	page, err := s.List(ctx, ContractListFilter{TemplateID: "t1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c2", page[0].ID)
}
