// Package pipeline cleans a production log and decomposes its downtime.
//
// duration.go provides Minutes, the lenient duration parser: "H:M" text is
// h*60+m, anything else is read as a plain number of minutes, and every
// failure reads as 0.
//
// sanitize.go provides Sanitize, the stable filter that drops rows with a
// sentinel tool id (50, 500), a non-positive machine id, or a missing id.
//
// losscode.go provides ParseLossCode, which decodes the Python-style
// multiple_loss_code payload with a YAML flow parser, so both quote styles
// are accepted and apostrophes inside names survive. A payload that is not a
// list of objects decodes to no events.
//
// decompose.go provides Decompose, which splits "Machine Idle" time out of
// each record's raw downtime (net_idle_m, net_downtime_m = max(0, raw-idle))
// and counts every other loss reason into a frequency table.
//
// Run chains Sanitize and Decompose. Nothing in this package returns an
// error: malformed input is recovered to zero values, never surfaced.
package pipeline
