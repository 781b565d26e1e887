// Package api implements the HTTP REST API for pressline-server.
//
// New(store, ingest, alerts, opts) returns an http.Handler that serves:
//
//	GET  /api/v1/health                       report count, latest id, alert count
//	GET  /api/v1/reports                      cached reports, newest first
//	POST /api/v1/reports?source=name          upload a production log (CSV body)
//	GET  /api/v1/reports/{id}                 stats, KPIs, top reasons, diagnostics
//	GET  /api/v1/reports/{id}/records         annotated rows (?offset=&limit=)
//	GET  /api/v1/reports/{id}/reasons         loss frequency table (?top=N)
//	GET  /api/v1/reports/{id}/reasons.csv     loss frequency table as CSV
//	GET  /api/v1/reports/{id}/summary/{by}    grouped totals and best/worst, by machine|tool|shift
//	GET  /api/v1/reports/{id}/export.csv      original columns + net_idle_m, net_downtime_m
//	GET  /api/v1/reports/{id}/export.xlsx     workbook with records, KPIs, groups, reasons
//	GET  /api/v1/latest                       most recently analysed report
//	GET  /api/v1/alerts                       firing and recently resolved alerts
//
// JSON endpoints respond with Content-Type: application/json and errors as
// {"error": "..."}. Unknown paths return 404 and wrong methods 405. Routing
// uses chi; Options.Middleware (API key auth) wraps everything but health.
package api
