package http

import (
	"github.com/nats-io/nats.go"

	"github.com/darukaa/siteboundary/internal/adapters/postgres"
	"github.com/darukaa/siteboundary/internal/adapters/valkey"
	"github.com/darukaa/siteboundary/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sites      *usecases.SiteService
	Projects   *usecases.ProjectService
	Boundaries *usecases.BoundaryService
	Audit      *usecases.AuditService
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
}
