package telemetry

// Span names used for instrumentation.
const (
	// Sites
	SpanSiteCreate  = "site.create"
	SpanSiteUpdate  = "site.update"
	SpanSiteDelete  = "site.delete"
	SpanSiteHistory = "site.analytics_history"

	// Projects
	SpanProjectCreate = "project.create"
	SpanProjectUpdate = "project.update"
	SpanProjectDelete = "project.delete"

	// Boundary editor
	SpanSessionOpen  = "boundary.session.open"
	SpanSessionEvent = "boundary.session.event"
	SpanSessionSave  = "boundary.session.save"
	SpanSessionClose = "boundary.session.close"

	// Auditor
	SpanAuditRecord = "boundary.audit.record"
)
