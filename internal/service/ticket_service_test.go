package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

// fakeTicketRepo implements repository.TicketRepository with overridable funcs.
type fakeTicketRepo struct {
	createFn       func(ctx context.Context, ticket *domain.Ticket) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Ticket, error)
	listByOwnerFn  func(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	updateStatusFn func(ctx context.Context, ticket *domain.Ticket) error
	deleteFn       func(ctx context.Context, id string) error
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if f.createFn != nil {
		return f.createFn(ctx, ticket)
	}
	ticket.ID = "t1"
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	if f.listByOwnerFn != nil {
		return f.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}

func (f *fakeTicketRepo) UpdateStatus(ctx context.Context, ticket *domain.Ticket) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, ticket)
	}
	return nil
}

func (f *fakeTicketRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func newTicketService(repo *fakeTicketRepo, dispatcher events.Dispatcher) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Dispatcher: dispatcher,
	})
}

func TestCreateDefaultsToOpenAndCallerOwnership(t *testing.T) {
	var persisted *domain.Ticket
	repo := &fakeTicketRepo{
		createFn: func(_ context.Context, ticket *domain.Ticket) error {
			ticket.ID = "t1"
			persisted = ticket
			return nil
		},
	}
	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	svc := newTicketService(repo, dispatcher)

	ticket, err := svc.Create(context.Background(), "alice", "t1 title", "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "alice", ticket.OwnerID)
	require.NotNil(t, persisted)
	assert.Equal(t, "alice", persisted.OwnerID)
	require.Len(t, published, 1)
	assert.Equal(t, "t1", published[0].TicketID)
}

func TestListOwnedPassesCallerAsFilter(t *testing.T) {
	repo := &fakeTicketRepo{
		listByOwnerFn: func(_ context.Context, ownerID string) ([]domain.Ticket, error) {
			assert.Equal(t, "alice", ownerID)
			return []domain.Ticket{{ID: "t1", OwnerID: "alice"}}, nil
		},
	}
	svc := newTicketService(repo, nil)

	tickets, err := svc.ListOwned(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "t1", tickets[0].ID)
}

func TestUpdateStatusEnforcesOwnership(t *testing.T) {
	repo := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "alice", Status: domain.TicketStatusOpen}, nil
		},
	}
	svc := newTicketService(repo, nil)

	_, err := svc.UpdateStatus(context.Background(), "bob", "t1", "closed")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc := newTicketService(&fakeTicketRepo{}, nil)

	_, err := svc.UpdateStatus(context.Background(), "alice", "missing", "closed")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestUpdateStatusChangesStatusForOwner(t *testing.T) {
	repo := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "alice", Status: domain.TicketStatusOpen}, nil
		},
	}
	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	svc := newTicketService(repo, dispatcher)

	ticket, err := svc.UpdateStatus(context.Background(), "alice", "t1", "closed")
	require.NoError(t, err)
	assert.Equal(t, "closed", ticket.Status)
	require.Len(t, published, 1)
	assert.Equal(t, map[string]any{"from": "open", "to": "closed"}, published[0].Payload)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	repo := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "alice"}, nil
		},
		deleteFn: func(_ context.Context, _ string) error {
			t.Fatal("delete must not run for a non-owner")
			return nil
		},
	}
	svc := newTicketService(repo, nil)

	err := svc.Delete(context.Background(), "bob", "t1")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestDeleteNotFound(t *testing.T) {
	svc := newTicketService(&fakeTicketRepo{}, nil)

	err := svc.Delete(context.Background(), "alice", "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestDeleteRemovesOwnedTicket(t *testing.T) {
	deleted := ""
	repo := &fakeTicketRepo{
		getByIDFn: func(_ context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, OwnerID: "alice"}, nil
		},
		deleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newTicketService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), "alice", "t1"))
	assert.Equal(t, "t1", deleted)
}
