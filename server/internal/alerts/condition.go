package alerts

import (
	"strconv"
	"strings"

	"github.com/abceng/pressline/pkg/summary"
	"github.com/abceng/pressline/pkg/types"
)

// evalCondition evaluates a rule condition string against a report.
//
// Supported expressions (field operator value):
//
//	net_downtime_hours > 40
//	idle_hours > 100
//	dropped_pct > 5
//	unparsed_loss_pct > 10
//	kept_rows < 1
//	input_rows < 100
//	total_strokes < 50000
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, res types.Result) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	v, ok := numericField(field, res)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the report.
func numericField(field string, res types.Result) (float64, bool) {
	st := res.Stats
	switch field {
	case "net_downtime_hours":
		return st.NetDowntimeM / 60, true
	case "idle_hours":
		return st.NetIdleM / 60, true
	case "dropped_pct":
		return st.DroppedPct(), true
	case "unparsed_loss_pct":
		return st.UnparsedPct(), true
	case "kept_rows":
		return float64(st.KeptRows), true
	case "input_rows":
		return float64(st.InputRows), true
	case "total_strokes":
		return summary.ComputeKPIs(res.Records).TotalStrokes, true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
