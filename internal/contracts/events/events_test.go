package events

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	published []Event
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, event Event) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

type failingStore struct{}

func (failingStore) Append(context.Context, Event) error { return errors.New("db down") }
func (failingStore) ListByContract(context.Context, string) ([]Event, error) {
	return nil, errors.New("db down")
}

func TestRecordAppendsAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	publisher := &fakePublisher{}
	svc := NewService(store, publisher, slog.Default())

	require.NoError(t, svc.Record(ctx, "c1", TypeIssued, map[string]any{"fingerprint": "fp"}))

	trail, err := svc.ListByContract(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, TypeIssued, trail[0].Type)
	assert.NotEmpty(t, trail[0].ID)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "c1", publisher.published[0].ContractID)
}

func TestRecordFailsClosedOnStoreError(t *testing.T) {
	publisher := &fakePublisher{}
	svc := NewService(failingStore{}, publisher, slog.Default())

	err := svc.Record(context.Background(), "c1", TypeIssued, nil)
	require.Error(t, err)
	assert.Empty(t, publisher.published)
}

func TestRecordToleratesPublishFailure(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	svc := NewService(store, &fakePublisher{err: errors.New("broker down")}, slog.Default())

	require.NoError(t, svc.Record(ctx, "c1", TypeDownloaded, nil))

	trail, err := svc.ListByContract(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}

func TestRecordWithoutPublisher(t *testing.T) {
	svc := NewService(NewInMemoryStore(), nil, slog.Default())
	require.NoError(t, svc.Record(context.Background(), "c1", TypeSent, nil))
}
