package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abceng/pressline/pkg/dataset"
	"github.com/abceng/pressline/pkg/export"
	"github.com/abceng/pressline/pkg/summary"
	"github.com/abceng/pressline/pkg/types"
	"github.com/abceng/pressline/server/internal/alerts"
	"github.com/abceng/pressline/server/internal/ingest"
	"github.com/abceng/pressline/server/internal/store"
)

// defaultTopReasons is how many loss reasons a report payload carries.
const defaultTopReasons = 10

// DefaultUploadSource names uploads that do not pass ?source=.
const DefaultUploadSource = "upload"

// Options configures the REST handler.
type Options struct {
	// MaxUploadBytes caps POST /api/v1/reports bodies. Zero means no limit.
	MaxUploadBytes int64

	// Middleware wraps every route except /api/v1/health, e.g. API key auth.
	Middleware []func(http.Handler) http.Handler
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store  *store.Store
	ingest *ingest.Service
	alerts *alerts.Engine
	opts   Options
	router chi.Router
}

// New creates a Handler wired to the report store, the ingest service and
// the alert engine, and registers all routes. eng may be nil.
func New(st *store.Store, svc *ingest.Service, eng *alerts.Engine, opts Options) http.Handler {
	h := &Handler{store: st, ingest: svc, alerts: eng, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/api/v1/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(opts.Middleware...)

		r.Get("/api/v1/reports", h.listReports)
		r.Post("/api/v1/reports", h.uploadReport)
		r.Route("/api/v1/reports/{id}", func(r chi.Router) {
			r.Use(h.withReport)
			r.Get("/", h.getReport)
			r.Get("/records", h.records)
			r.Get("/reasons", h.reasons)
			r.Get("/reasons.csv", h.reasonsCSV)
			r.Get("/summary/{by}", h.summaryBy)
			r.Get("/export.csv", h.exportCSV)
			r.Get("/export.xlsx", h.exportXLSX)
		})
		r.Get("/api/v1/latest", h.latest)
		r.Get("/api/v1/alerts", h.listAlerts)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: cached report count and latest id.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{ReportCount: h.store.Count()}
	if h.alerts != nil {
		resp.AlertCount = h.alerts.FiringCount()
	}
	latest, ok := h.store.Latest()
	switch {
	case !ok:
		resp.State = "unknown"
	case resp.AlertCount > 0:
		resp.State = "degraded"
	default:
		resp.State = "ok"
	}
	if ok {
		resp.LatestID = latest.ID
	}
	jsonResp(w, http.StatusOK, resp)
}

// listReports returns GET /api/v1/reports: every cached report, newest first.
func (h *Handler) listReports(w http.ResponseWriter, _ *http.Request) {
	entries := h.store.List()
	out := make([]ReportItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, toReportItem(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// uploadReport handles POST /api/v1/reports?source=name. The body is the raw
// production log. Returns 201 when the report was computed, 200 on a memo hit.
func (h *Handler) uploadReport(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = DefaultUploadSource
	}

	body := r.Body
	if h.opts.MaxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		jsonErr(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(data) == 0 {
		jsonErr(w, http.StatusBadRequest, "empty body")
		return
	}

	e, cached, err := h.ingest.Ingest(r.Context(), source, data)
	if err != nil {
		slog.Warn("api: upload rejected", "source", source, "err", err)
		jsonErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := BuildReport(e)
	resp.Cached = cached
	code := http.StatusCreated
	if cached {
		code = http.StatusOK
	}
	jsonResp(w, code, resp)
}

// getReport returns GET /api/v1/reports/{id}.
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, BuildReport(reportFrom(r)))
}

// latest returns GET /api/v1/latest: the most recently analysed report.
func (h *Handler) latest(w http.ResponseWriter, _ *http.Request) {
	e, ok := h.store.Latest()
	if !ok {
		jsonErr(w, http.StatusNotFound, "no report available")
		return
	}
	jsonResp(w, http.StatusOK, BuildReport(e))
}

// records returns GET /api/v1/reports/{id}/records?offset=&limit=.
func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	e := reportFrom(r)
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	all := e.Result.Records
	start := min(offset, len(all))
	end := len(all)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	out := make([]RecordResponse, 0, end-start)
	for _, rec := range all[start:end] {
		values := make(map[string]string, len(e.Header))
		for i, col := range e.Header {
			if i < len(rec.Fields) {
				values[col] = rec.Fields[i]
			}
		}
		reasons := rec.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		out = append(out, RecordResponse{
			Line:           rec.Line,
			Values:         values,
			NetIdleM:       rec.NetIdleM,
			NetDowntimeM:   rec.NetDowntimeM,
			Reasons:        reasons,
			LossCodeParsed: rec.LossCodeParsed,
		})
	}
	jsonResp(w, http.StatusOK, RecordsResponse{Total: len(all), Offset: start, Records: out})
}

// reasons returns GET /api/v1/reports/{id}/reasons?top=N.
func (h *Handler) reasons(w http.ResponseWriter, r *http.Request) {
	e := reportFrom(r)
	top, err := queryInt(r, "top", 0)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, ReasonsResponse{
		TotalOccurrences: e.Result.Reasons.Total(),
		Reasons:          nonNilReasons(summary.TopReasons(e.Result.Reasons, top)),
	})
}

// reasonsCSV returns GET /api/v1/reports/{id}/reasons.csv.
func (h *Handler) reasonsCSV(w http.ResponseWriter, r *http.Request) {
	e := reportFrom(r)
	attachment(w, "text/csv; charset=utf-8", baseName(e.Source)+"_reasons.csv")
	if err := dataset.WriteReasons(w, e.Result.Reasons); err != nil {
		slog.Error("api: write reasons csv", "id", e.ID, "err", err)
	}
}

// summaryBy returns GET /api/v1/reports/{id}/summary/{by} for by in
// machine|tool|shift.
func (h *Handler) summaryBy(w http.ResponseWriter, r *http.Request) {
	e := reportFrom(r)
	key, err := summary.ParseKey(chi.URLParam(r, "by"))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	groups := summary.GroupBy(e.Result.Records, key)
	out := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupResponse{Group: g, NetDowntimeHours: g.NetDowntimeHours()})
	}
	jsonResp(w, http.StatusOK, SummaryResponse{
		By:         string(key),
		Groups:     out,
		Performers: summary.Performers(groups),
	})
}

// exportCSV returns GET /api/v1/reports/{id}/export.csv: the original
// columns plus net_idle_m and net_downtime_m.
func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	e := reportFrom(r)
	attachment(w, "text/csv; charset=utf-8", baseName(e.Source)+"_clean.csv")
	if err := dataset.WriteCSV(w, e.Header, e.Result.Records); err != nil {
		slog.Error("api: write csv export", "id", e.ID, "err", err)
	}
}

// exportXLSX returns GET /api/v1/reports/{id}/export.xlsx.
func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	e := reportFrom(r)
	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		baseName(e.Source)+"_report.xlsx")
	if err := export.WriteXLSX(w, e.Header, e.Result); err != nil {
		slog.Error("api: write xlsx export", "id", e.ID, "err", err)
	}
}

// listAlerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, _ *http.Request) {
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// --- report lookup ----------------------------------------------------------

type ctxKey struct{}

// withReport resolves {id} to a cached report or answers 404.
func (h *Handler) withReport(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, ok := h.store.Get(chi.URLParam(r, "id"))
		if !ok {
			jsonErr(w, http.StatusNotFound, "report not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, e)))
	})
}

func reportFrom(r *http.Request) *store.Entry {
	return r.Context().Value(ctxKey{}).(*store.Entry)
}

// --- helpers ----------------------------------------------------------------

// BuildReport maps a store.Entry to its JSON representation.
func BuildReport(e *store.Entry) ReportResponse {
	return ReportResponse{
		ReportItem:  toReportItem(e),
		KPIs:        summary.ComputeKPIs(e.Result.Records),
		TopReasons:  nonNilReasons(summary.TopReasons(e.Result.Reasons, defaultTopReasons)),
		Diagnostics: computeDiagnostics(e.Result),
	}
}

func toReportItem(e *store.Entry) ReportItem {
	return ReportItem{
		ID:          e.ID,
		Source:      e.Source,
		Fingerprint: e.Fingerprint,
		ComputedAt:  e.ComputedAt.UTC().Format(time.RFC3339),
		Stats:       e.Result.Stats,
	}
}

func nonNilReasons(t types.LossFrequencyTable) types.LossFrequencyTable {
	if t == nil {
		return types.LossFrequencyTable{}
	}
	return t
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}

// baseName turns a source name into a download file stem.
func baseName(source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "report"
	}
	return base
}

// queryInt parses a non-negative integer query parameter, or returns def
// when the parameter is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}
