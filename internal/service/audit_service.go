package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"ikiraha-api/internal/event"
	"ikiraha-api/internal/model"
	"ikiraha-api/internal/util"
	"ikiraha-api/pkg/apierror"
)

const auditWriteTimeout = 5 * time.Second

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

// AuditService persists auth events from the bus and serves audit queries.
type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Run consumes events until the channel closes or ctx is done.
func (s *AuditService) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.record(ctx, e)
		}
	}
}

func (s *AuditService) record(ctx context.Context, e event.Event) {
	entry := model.AuditEntry{
		Action:     string(e.Type),
		OccurredAt: e.Timestamp,
		Actor: model.AuditActor{
			UserID: e.Payload.UserID,
			Email:  e.Payload.Email,
			IP:     e.Payload.IP,
		},
		Status: e.Payload.Status,
		Error:  e.Payload.Reason,
	}
	if len(e.Payload.Details) > 0 {
		entry.Details = e.Payload.Details
	}

	// Writes are not tied to the consumer's cancellation.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := s.store.Log(writeCtx, entry); err != nil {
		slog.Error("persist audit entry failed", "action", entry.Action, "event_id", e.ID, "error", err)
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if err := validateAuditTime(query.From); err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'from' datetime format", query.From)
	}
	if err := validateAuditTime(query.To); err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'to' datetime format", query.To)
	}
	if actor := strings.TrimSpace(query.ActorID); actor != "" {
		if _, err := strconv.ParseInt(actor, 10, 64); err != nil {
			return nil, model.Meta{}, apierror.BadRequest("invalid 'actor_id'", actor)
		}
	}

	query.Page, query.Limit = util.NormalizePageWithin(query.Page, query.Limit, util.DefaultAuditLimit, util.MaxAuditLimit)
	if err := checkPage(query.Page, query.Limit); err != nil {
		return nil, model.Meta{}, err
	}

	return s.store.Query(ctx, query)
}

func validateAuditTime(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if _, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return nil
	}
	_, err := time.Parse(time.RFC3339, trimmed)
	return err
}
