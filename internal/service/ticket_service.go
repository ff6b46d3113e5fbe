package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/persistence"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

// TicketService coordinates ticket workflows and enforces ownership.
type TicketService struct {
	tickets    repository.TicketRepository
	cache      *persistence.Redis
	cacheTTL   time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Cache      *persistence.Redis
	CacheTTL   time.Duration
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketService builds the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create persists a new ticket owned by the caller with the default status.
func (s *TicketService) Create(ctx context.Context, ownerID, title, description string) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		OwnerID:     ownerID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateListCache(ctx, ownerID)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		UserID:   ownerID,
		TicketID: ticket.ID,
	})
	return ticket, nil
}

// ListOwned returns the caller's tickets in creation order, serving from the
// cache when a fresh entry exists.
func (s *TicketService) ListOwned(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	key := listCacheKey(ownerID)
	if raw, hit, err := s.cache.GetBytes(ctx, key); err != nil {
		s.logger.Debug("ticket list cache read failed", zap.Error(err))
	} else if hit {
		var cached []domain.Ticket
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		s.logger.Debug("discarding undecodable ticket list cache entry", zap.String("key", key))
	}

	tickets, err := s.tickets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if raw, err := json.Marshal(tickets); err == nil {
		if err := s.cache.SetBytes(ctx, key, raw, s.cacheTTL); err != nil {
			s.logger.Debug("ticket list cache write failed", zap.Error(err))
		}
	}
	return tickets, nil
}

// UpdateStatus changes a ticket's status after verifying ownership.
func (s *TicketService) UpdateStatus(ctx context.Context, callerID, ticketID, status string) (*domain.Ticket, error) {
	ticket, err := s.loadOwned(ctx, callerID, ticketID)
	if err != nil {
		return nil, err
	}

	previous := ticket.Status
	ticket.Status = status
	if err := s.tickets.UpdateStatus(ctx, ticket); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	s.invalidateListCache(ctx, callerID)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		UserID:   callerID,
		TicketID: ticket.ID,
		Payload:  map[string]any{"from": previous, "to": status},
	})
	return ticket, nil
}

// Delete removes a ticket after verifying ownership.
func (s *TicketService) Delete(ctx context.Context, callerID, ticketID string) error {
	if _, err := s.loadOwned(ctx, callerID, ticketID); err != nil {
		return err
	}

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("ticket", nil)
		}
		return apperrors.MapError(err)
	}

	s.invalidateListCache(ctx, callerID)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		UserID:   callerID,
		TicketID: ticketID,
	})
	return nil
}

// loadOwned fetches a ticket and checks the stored owner against the caller.
// The stored owner reference is authoritative; client input never reaches it.
func (s *TicketService) loadOwned(ctx context.Context, callerID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.OwnerID != callerID {
		return nil, apperrors.NewForbidden("not the ticket owner")
	}
	return ticket, nil
}

func (s *TicketService) invalidateListCache(ctx context.Context, ownerID string) {
	if err := s.cache.Delete(ctx, listCacheKey(ownerID)); err != nil {
		s.logger.Debug("ticket list cache invalidation failed", zap.Error(err))
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, event)
	}
}

func listCacheKey(ownerID string) string {
	return "tickets:owner:" + ownerID
}
