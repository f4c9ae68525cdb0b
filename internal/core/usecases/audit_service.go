package usecases

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/core/ports"
	"github.com/darukaa/siteboundary/internal/pkg/geospatial"
	"github.com/darukaa/siteboundary/internal/pkg/telemetry"
)

// AuditService keeps the history of boundary changes.
type AuditService struct {
	history ports.BoundaryHistoryRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(history ports.BoundaryHistoryRepository) *AuditService {
	return &AuditService{history: history}
}

// Record stores one boundary event.
func (s *AuditService) Record(ctx context.Context, ev *domain.BoundaryEvent) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanAuditRecord)
	defer span.End()
	span.SetAttributes(
		attribute.String("site.id", ev.SiteID),
		attribute.String("boundary.kind", string(ev.Kind)),
	)

	if ev.SiteID == "" {
		return fmt.Errorf("%w: boundary event without site id", domain.ErrValidation)
	}
	rec := &domain.BoundaryRecord{
		SiteID:     ev.SiteID,
		SessionID:  ev.SessionID,
		Kind:       ev.Kind,
		Vertices:   geospatial.ToPersistedForm(ev.Vertices),
		OccurredAt: ev.OccurredAt,
	}
	if err := s.history.Insert(ctx, rec); err != nil {
		return fmt.Errorf("insert boundary record: %w", err)
	}
	return nil
}

// History returns the most recent boundary records of a site, newest first.
func (s *AuditService) History(ctx context.Context, siteID string, limit int) ([]domain.BoundaryRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.history.ListBySite(ctx, siteID, limit)
}
