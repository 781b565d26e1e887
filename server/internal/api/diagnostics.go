package api

import (
	"fmt"
	"sort"

	"github.com/abceng/pressline/pkg/types"
)

// DiagnosticHint is one human-readable insight about an analysed report.
// The dashboard displays these as chips on the report card; clicking one
// shows Detail.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint (e.g. drop %).
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives diagnostic hints from a pipeline result.
// Diagnostics are ordered: critical first, then warnings, then info.
func computeDiagnostics(res types.Result) []DiagnosticHint {
	st := res.Stats
	var hints []DiagnosticHint

	// ── Empty input ──────────────────────────────────────────────────────────
	if st.InputRows == 0 {
		return []DiagnosticHint{{
			Key:   "empty_input",
			Level: "info",
			Title: "No data rows",
			Detail: "The uploaded log has a valid header but no data rows. " +
				"Check that the export covered the intended date range.",
		}}
	}

	// ── Nothing survived sanitising ──────────────────────────────────────────
	if st.KeptRows == 0 {
		v := float64(st.InputRows)
		hints = append(hints, DiagnosticHint{
			Key:   "no_rows_kept",
			Level: "critical",
			Title: "Every row dropped",
			Detail: fmt.Sprintf(
				"All %d rows were removed while cleaning: %d used a placeholder tool id (50 or 500), "+
					"%d had a machine id of zero or below and %d were missing a machine or tool id. "+
					"Every total on this report is zero.",
				st.InputRows, st.DroppedSentinel, st.DroppedNonPositive, st.DroppedMissingID,
			),
			Value: &v,
		})
	} else if st.Dropped() > 0 {
		pct := st.DroppedPct()
		level := "info"
		if pct >= 10 {
			level = "warning"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "rows_dropped",
			Level: level,
			Title: fmt.Sprintf("%d rows dropped", st.Dropped()),
			Detail: fmt.Sprintf(
				"%.1f%% of rows were left out of this report: %d used a placeholder tool id (50 or 500), "+
					"%d had a machine id of zero or below and %d were missing a machine or tool id.",
				pct, st.DroppedSentinel, st.DroppedNonPositive, st.DroppedMissingID,
			),
			Value: &pct,
		})
	}

	// ── Unreadable loss codes ────────────────────────────────────────────────
	if st.UnparsedLossCodes > 0 {
		pct := st.UnparsedPct()
		hints = append(hints, DiagnosticHint{
			Key:   "unparsed_loss_codes",
			Level: "warning",
			Title: fmt.Sprintf("%d unreadable loss codes", st.UnparsedLossCodes),
			Detail: fmt.Sprintf(
				"%d rows (%.1f%%) have a multiple_loss_code cell that could not be read. "+
					"Those rows contribute no idle time and no loss reasons, so their whole "+
					"downtime counts as true downtime. Check the export for truncated cells.",
				st.UnparsedLossCodes, pct,
			),
			Value: &pct,
		})
	}

	// ── Empty loss-code cells ───────────────────────────────────────────────
	if st.BlankLossCodes > 0 {
		v := float64(st.BlankLossCodes)
		hints = append(hints, DiagnosticHint{
			Key:   "blank_loss_codes",
			Level: "info",
			Title: fmt.Sprintf("%d rows without loss codes", st.BlankLossCodes),
			Detail: fmt.Sprintf(
				"%d rows have an empty multiple_loss_code cell. They contribute no idle time "+
					"and no loss reasons, so their whole downtime counts as true downtime.",
				st.BlankLossCodes,
			),
			Value: &v,
		})
	}

	// ── Idle share of reported downtime ──────────────────────────────────────
	if st.RawDowntimeM > 0 && st.NetIdleM > 0 {
		share := st.NetIdleM / st.RawDowntimeM * 100
		if share > 100 {
			share = 100
		}
		hints = append(hints, DiagnosticHint{
			Key:   "idle_share",
			Level: "info",
			Title: fmt.Sprintf("%.0f%% idle", share),
			Detail: fmt.Sprintf(
				"Machine Idle accounts for %.0f of the %.0f reported downtime minutes. "+
					"Idle time is excluded from true downtime.",
				st.NetIdleM, st.RawDowntimeM,
			),
			Value: &share,
		})
	}

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "clean",
			Level:  "ok",
			Title:  "Clean log",
			Detail: "Every row was kept and every loss code was readable.",
		})
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank[hints[i].Level] < levelRank[hints[j].Level]
	})
	return hints
}
