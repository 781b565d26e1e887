// Package export writes an annotated production log as an Excel workbook:
// the augmented records, the headline KPIs, per-machine / per-tool /
// per-shift summaries and the loss reason table, one sheet each.
package export
