/*
dto.go - JSON shapes of the status API

PURPOSE:
  Response types are kept apart from storage records so the wire format
  never changes by accident when a store column does.

SEE ALSO:
  - handlers.go: Where these are populated
*/
package api

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	UptimeSeconds      int64 `json:"uptime_seconds"`
	ActiveSessions     int   `json:"active_sessions"`
	AuthenticatedUsers int   `json:"authenticated_users"`
	ReportsGenerated   int   `json:"reports_generated"`
}

// ReportRunResponse is one element of GET /api/reports.
type ReportRunResponse struct {
	ID          string `json:"id"`
	Projects    string `json:"projects"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	RowCount    int    `json:"row_count"`
	TotalHours  string `json:"total_hours"`
	Filename    string `json:"filename"`
	CreatedAt   string `json:"created_at"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
