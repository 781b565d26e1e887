// Package ws implements the WebSocket hub for pressline-server.
//
// Hub manages a set of connected clients. Every report published through
// Hub.Publish (wired as an ingest hook) is pushed to all clients at once, and
// the latest report is re-sent on a configurable interval (default 5s) so
// late joiners and reconnecting dashboards stay current.
//
// New(store, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker; it blocks until ctx is
// cancelled, then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket and sends the latest
// report immediately on connect.
//
// Message format sent to clients:
//
//	{
//	  "event": "report",
//	  "data":  { /* same schema as GET /api/v1/reports/{id} */ }
//	}
//
// Before any report exists the event is "idle" and data is null.
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The endpoint is mounted at /ws/stream by the server.
package ws
