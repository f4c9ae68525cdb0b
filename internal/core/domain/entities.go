package domain

import (
	"time"
)

// SiteStatus is the lifecycle status of a site.
type SiteStatus string

const (
	SiteActive   SiteStatus = "active"
	SiteInactive SiteStatus = "inactive"
)

// AnalyticsMetric is a single KPI reading attached to a site.
type AnalyticsMetric struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Site is a monitored location delineated by a boundary polygon.
type Site struct {
	ID          string                     `json:"id"`
	ProjectID   string                     `json:"project_id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	SiteType    string                     `json:"site_type,omitempty"`
	Area        *float64                   `json:"area,omitempty"`
	Location    string                     `json:"location,omitempty"`
	Status      SiteStatus                 `json:"status"`
	Geolocation []GeoPoint                 `json:"geolocation,omitempty"`
	Analytics   map[string]AnalyticsMetric `json:"analytics,omitempty"`
	CreatedBy   string                     `json:"created_by"`
	UpdatedBy   string                     `json:"updated_by,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// Project groups sites. SitesAddedTotal counts the sites it currently holds.
type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	SitesAddedTotal int       `json:"sites_added_total"`
	CreatedBy       string    `json:"created_by"`
	UpdatedBy       string    `json:"updated_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProjectWithSites is a project together with its sites.
type ProjectWithSites struct {
	Project *Project `json:"project"`
	Sites   []Site   `json:"sites"`
}

// SiteAnalyticsRecord is a snapshot of a site's analytics taken before an update.
type SiteAnalyticsRecord struct {
	ID        string                     `json:"id"`
	SiteID    string                     `json:"site_id"`
	ProjectID string                     `json:"project_id"`
	Analytics map[string]AnalyticsMetric `json:"analytics"`
	CreatedBy string                     `json:"created_by"`
	CreatedAt time.Time                  `json:"created_at"`
}

// ChartPoint is one (timestamp, value) sample of a metric series.
type ChartPoint struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// ChartSeries groups the samples of one metric.
type ChartSeries struct {
	Unit   string       `json:"unit"`
	Values []ChartPoint `json:"values"`
}

// AnalyticsHistory is the history of a site plus chart-ready series per metric.
type AnalyticsHistory struct {
	History []SiteAnalyticsRecord  `json:"history"`
	Chart   map[string]ChartSeries `json:"chart"`
}

// BoundaryEventKind tells what kind of commit produced a boundary event.
type BoundaryEventKind string

const (
	BoundaryCreated BoundaryEventKind = "created"
	BoundaryEdited  BoundaryEventKind = "edited"
	BoundaryCleared BoundaryEventKind = "cleared"
)

// BoundaryEvent is a boundary change raised by an edit session.
// Vertices is always in interaction form; an empty list means the boundary was cleared.
type BoundaryEvent struct {
	SiteID     string            `json:"site_id"`
	SessionID  string            `json:"session_id"`
	Kind       BoundaryEventKind `json:"kind"`
	Vertices   []LatLng          `json:"vertices"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// BoundaryRecord is an audited boundary event as stored by the auditor.
type BoundaryRecord struct {
	ID         int64             `json:"id"`
	SiteID     string            `json:"site_id"`
	SessionID  string            `json:"session_id"`
	Kind       BoundaryEventKind `json:"kind"`
	Vertices   []GeoPoint        `json:"vertices"`
	OccurredAt time.Time         `json:"occurred_at"`
}
