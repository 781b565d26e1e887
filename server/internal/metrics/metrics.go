package metrics

import (
	"bytes"
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/abceng/pressline/pkg/summary"
	"github.com/abceng/pressline/server/internal/store"
)

const (
	namespace  = "pressline_"
	maxReasons = 20
)

// Gauge is an extra process-level value exported alongside report metrics,
// such as connected WebSocket clients or firing alerts.
type Gauge struct {
	Name  string
	Help  string
	Value func() float64
}

// Handler returns an http.Handler that writes the current metrics.
func Handler(st *store.Store, extra ...Gauge) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		for _, mf := range Collect(st, extra...) {
			if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
				slog.Error("metrics: encode family", "name", mf.GetName(), "err", err)
				http.Error(w, "metrics encoding failed", http.StatusInternalServerError)
				return
			}
		}
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		w.Write(buf.Bytes()) //nolint:errcheck
	})
}

// Collect builds the metric families for the current store contents.
// Families without samples are omitted.
func Collect(st *store.Store, extra ...Gauge) []*dto.MetricFamily {
	entries := st.List()

	cached := gaugeFamily("reports_cached", "Number of memoized reports.")
	cached.Metric = append(cached.Metric, gauge(float64(len(entries))))

	inputRows := gaugeFamily("report_input_rows", "Rows read from the production log.")
	keptRows := gaugeFamily("report_kept_rows", "Rows kept after sanitising.")
	dropped := gaugeFamily("report_dropped_rows", "Rows removed by the sanitiser, by cause.")
	unparsed := gaugeFamily("report_unparsed_loss_codes", "Kept rows whose loss code could not be read.")
	blank := gaugeFamily("report_blank_loss_codes", "Kept rows with an empty loss code cell.")
	rawDown := gaugeFamily("report_raw_downtime_minutes", "Reported downtime before idle is removed.")
	idle := gaugeFamily("report_net_idle_minutes", "Machine Idle minutes.")
	netDown := gaugeFamily("report_net_downtime_minutes", "True downtime minutes, idle excluded.")
	strokes := gaugeFamily("report_batch_strokes", "Total batch strokes of kept rows.")

	for _, e := range entries {
		s := e.Result.Stats
		labels := []string{"source", e.Source, "report_id", e.ID}
		inputRows.Metric = append(inputRows.Metric, gauge(float64(s.InputRows), labels...))
		keptRows.Metric = append(keptRows.Metric, gauge(float64(s.KeptRows), labels...))
		dropped.Metric = append(dropped.Metric,
			gauge(float64(s.DroppedSentinel), append(labels, "cause", "sentinel_tool")...),
			gauge(float64(s.DroppedNonPositive), append(labels, "cause", "non_positive_machine")...),
			gauge(float64(s.DroppedMissingID), append(labels, "cause", "missing_id")...),
		)
		unparsed.Metric = append(unparsed.Metric, gauge(float64(s.UnparsedLossCodes), labels...))
		blank.Metric = append(blank.Metric, gauge(float64(s.BlankLossCodes), labels...))
		rawDown.Metric = append(rawDown.Metric, gauge(s.RawDowntimeM, labels...))
		idle.Metric = append(idle.Metric, gauge(s.NetIdleM, labels...))
		netDown.Metric = append(netDown.Metric, gauge(s.NetDowntimeM, labels...))
		strokes.Metric = append(strokes.Metric, gauge(summary.ComputeKPIs(e.Result.Records).TotalStrokes, labels...))
	}

	reasons := gaugeFamily("latest_loss_reason_occurrences", "Occurrences of each loss reason in the latest report.")
	if latest, ok := st.Latest(); ok {
		for _, rc := range summary.TopReasons(latest.Result.Reasons, maxReasons) {
			reasons.Metric = append(reasons.Metric, gauge(float64(rc.Count), "reason", rc.Reason))
		}
	}

	out := []*dto.MetricFamily{cached, inputRows, keptRows, dropped, unparsed, blank, rawDown, idle, netDown, strokes, reasons}
	for _, g := range extra {
		mf := gaugeFamily(g.Name, g.Help)
		mf.Metric = append(mf.Metric, gauge(g.Value()))
		out = append(out, mf)
	}

	kept := out[:0]
	for _, mf := range out {
		if len(mf.Metric) > 0 {
			kept = append(kept, mf)
		}
	}
	return kept
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(namespace + name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

// gauge builds one sample. labels alternate name, value.
func gauge(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}
