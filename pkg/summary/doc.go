// Package summary derives the KPIs and grouped views that dashboards show
// over an annotated record set.
//
// ComputeKPIs gives the headline totals: strokes, true downtime and idle
// hours, and distinct machines. GroupBy aggregates per machine, tool or
// shift; Performers picks the best and worst group per metric. TopReasons
// truncates the loss frequency table.
package summary
