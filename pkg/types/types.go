package types

import "strconv"

// IdleLossName is the loss event name whose time is re-attributed out of the
// raw downtime figure. Matching is exact and case-sensitive.
const IdleLossName = "Machine Idle"

// Number is an optional numeric cell. Valid is false when the cell was empty
// or could not be read as a number.
type Number struct {
	Value float64
	Valid bool
}

// NumberOf returns a valid Number holding v.
func NumberOf(v float64) Number { return Number{Value: v, Valid: true} }

// String formats the number the way it is written back to CSV. An invalid
// number formats as the empty string.
func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// ProductionRecord is one batch row of a production log.
type ProductionRecord struct {
	// Line is the 1-based line number of the row in the source file
	// (the header is line 1).
	Line int

	MachineID    Number
	ToolID       Number
	Shift        string
	BatchStrokes Number
	ActualSPM    Number

	// Downtime is the raw downtime cell, either "HH:MM" or bare minutes.
	Downtime string

	// MultipleLossCode is the raw loss-event payload, a Python-style list of
	// objects such as [{'lossName': 'Jam', 'lossTime': '0:20'}].
	MultipleLossCode string

	// Fields holds every original cell of the row, aligned with the header
	// of the table the record was read from.
	Fields []string

	// Derived by the loss decomposer.
	NetIdleM       float64
	NetDowntimeM   float64
	Reasons        []string
	LossCodeParsed bool
}

// LossEvent is one cause-and-duration pair decoded from MultipleLossCode.
// Time holds the lossTime source text, or nil when absent; it is converted
// to minutes by the duration parser.
type LossEvent struct {
	Name string
	Time any
}

// ReasonCount is one entry of the loss frequency table.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// LossFrequencyTable maps non-idle loss reasons to occurrence counts, ordered
// by descending count.
type LossFrequencyTable []ReasonCount

// Total returns the sum of all counts.
func (t LossFrequencyTable) Total() int {
	var n int
	for _, rc := range t {
		n += rc.Count
	}
	return n
}

// Stats summarises one pipeline run.
type Stats struct {
	InputRows          int     `json:"input_rows"`
	KeptRows           int     `json:"kept_rows"`
	DroppedSentinel    int     `json:"dropped_sentinel_tool"`
	DroppedNonPositive int     `json:"dropped_non_positive_machine"`
	DroppedMissingID   int     `json:"dropped_missing_id"`
	UnparsedLossCodes  int     `json:"unparsed_loss_codes"`
	BlankLossCodes     int     `json:"blank_loss_codes"`
	RawDowntimeM       float64 `json:"raw_downtime_m"`
	NetIdleM           float64 `json:"net_idle_m"`
	NetDowntimeM       float64 `json:"net_downtime_m"`
}

// Dropped returns the number of rows removed by the sanitizer.
func (s Stats) Dropped() int {
	return s.DroppedSentinel + s.DroppedNonPositive + s.DroppedMissingID
}

// DroppedPct is the share of input rows removed by the sanitizer, 0–100.
func (s Stats) DroppedPct() float64 {
	if s.InputRows == 0 {
		return 0
	}
	return float64(s.Dropped()) / float64(s.InputRows) * 100
}

// UnparsedPct is the share of kept rows whose non-blank loss code failed to
// parse, 0–100.
func (s Stats) UnparsedPct() float64 {
	if s.KeptRows == 0 {
		return 0
	}
	return float64(s.UnparsedLossCodes) / float64(s.KeptRows) * 100
}

// Result is the cleaned, annotated dataset plus its loss frequency table.
type Result struct {
	Records []ProductionRecord
	Reasons LossFrequencyTable
	Stats   Stats
}
