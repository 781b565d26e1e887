package api

import (
	"github.com/abceng/pressline/pkg/summary"
	"github.com/abceng/pressline/pkg/types"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State       string `json:"state"`
	ReportCount int    `json:"report_count"`
	LatestID    string `json:"latest_id,omitempty"`
	AlertCount  int    `json:"alert_count"`
}

// ReportItem is one entry in GET /api/v1/reports.
type ReportItem struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	Fingerprint string      `json:"fingerprint"`
	ComputedAt  string      `json:"computed_at"` // RFC3339
	Stats       types.Stats `json:"stats"`
}

// ReportResponse is the payload for GET /api/v1/reports/{id},
// GET /api/v1/latest and POST /api/v1/reports.
type ReportResponse struct {
	ReportItem
	Cached      bool                     `json:"cached"`
	KPIs        summary.KPIs             `json:"kpis"`
	TopReasons  types.LossFrequencyTable `json:"top_reasons"`
	Diagnostics []DiagnosticHint         `json:"diagnostics"`
}

// RecordResponse is one row in GET /api/v1/reports/{id}/records.
type RecordResponse struct {
	Line           int               `json:"line"`
	Values         map[string]string `json:"values"`
	NetIdleM       float64           `json:"net_idle_m"`
	NetDowntimeM   float64           `json:"net_downtime_m"`
	Reasons        []string          `json:"reasons"`
	LossCodeParsed bool              `json:"loss_code_parsed"`
}

// RecordsResponse is the payload for GET /api/v1/reports/{id}/records.
type RecordsResponse struct {
	Total   int              `json:"total"`
	Offset  int              `json:"offset"`
	Records []RecordResponse `json:"records"`
}

// ReasonsResponse is the payload for GET /api/v1/reports/{id}/reasons.
type ReasonsResponse struct {
	TotalOccurrences int                      `json:"total_occurrences"`
	Reasons          types.LossFrequencyTable `json:"reasons"`
}

// SummaryResponse is the payload for GET /api/v1/reports/{id}/summary/{by}.
type SummaryResponse struct {
	By         string              `json:"by"`
	Groups     []GroupResponse     `json:"groups"`
	Performers []summary.Performer `json:"performers"`
}

// GroupResponse is one group in a SummaryResponse.
type GroupResponse struct {
	summary.Group
	NetDowntimeHours float64 `json:"net_downtime_hours"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
