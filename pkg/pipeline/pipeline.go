package pipeline

import (
	"log/slog"
	"strings"

	"github.com/abceng/pressline/pkg/types"
)

// Run sanitizes records, decomposes the survivors and totals the result.
func Run(records []types.ProductionRecord) types.Result {
	kept, sst := Sanitize(records)
	annotated, reasons := Decompose(kept)

	st := types.Stats{
		InputRows:          sst.Input,
		KeptRows:           sst.Kept,
		DroppedSentinel:    sst.SentinelTool,
		DroppedNonPositive: sst.NonPositiveMachine,
		DroppedMissingID:   sst.MissingID,
	}
	for _, rec := range annotated {
		switch {
		case rec.LossCodeParsed:
		case strings.TrimSpace(rec.MultipleLossCode) == "":
			st.BlankLossCodes++
		default:
			st.UnparsedLossCodes++
		}
		st.RawDowntimeM += Minutes(rec.Downtime)
		st.NetIdleM += rec.NetIdleM
		st.NetDowntimeM += rec.NetDowntimeM
	}

	slog.Debug("pipeline: run complete",
		"input", st.InputRows,
		"kept", st.KeptRows,
		"unparsed_loss_codes", st.UnparsedLossCodes,
		"blank_loss_codes", st.BlankLossCodes,
		"reasons", len(reasons),
	)

	return types.Result{
		Records: annotated,
		Reasons: reasons,
		Stats:   st,
	}
}
