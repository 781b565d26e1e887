// Package ingest accepts production logs and turns them into memoized
// reports.
//
// Service.Ingest validates the source name, hands the raw bytes to the
// report store (which runs the pipeline only on a fingerprint miss) and then
// notifies the registered hooks, such as the WebSocket hub and the alert
// engine. IngestFile does the same for a file on disk, using its path as the
// source name.
//
// Compute builds the store's ComputeFunc from the configured input options.
package ingest
