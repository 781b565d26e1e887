package pipeline

import "github.com/abceng/pressline/pkg/types"

// sentinelToolIDs are reserved tool ids used for test or invalid tooling.
// Compared as float64 so 50 and 50.0 both match.
var sentinelToolIDs = []float64{50, 500}

// SanitizeStats counts what Sanitize kept and why it dropped the rest.
// A row missing either id counts as MissingID even if the other id would
// also have excluded it.
type SanitizeStats struct {
	Input              int
	Kept               int
	SentinelTool       int
	NonPositiveMachine int
	MissingID          int
}

// Sanitize returns the records that have both ids, a machine id > 0 and a
// non-sentinel tool id. Order is preserved and the input is not modified.
func Sanitize(records []types.ProductionRecord) ([]types.ProductionRecord, SanitizeStats) {
	st := SanitizeStats{Input: len(records)}
	out := make([]types.ProductionRecord, 0, len(records))

	for _, rec := range records {
		switch {
		case !rec.MachineID.Valid || !rec.ToolID.Valid:
			st.MissingID++
		case isSentinelTool(rec.ToolID.Value):
			st.SentinelTool++
		case rec.MachineID.Value <= 0:
			st.NonPositiveMachine++
		default:
			out = append(out, rec)
		}
	}

	st.Kept = len(out)
	return out, st
}

func isSentinelTool(id float64) bool {
	for _, s := range sentinelToolIDs {
		if id == s {
			return true
		}
	}
	return false
}
