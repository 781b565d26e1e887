package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/abceng/pressline/pkg/dataset"
	"github.com/abceng/pressline/pkg/pipeline"
	"github.com/abceng/pressline/pkg/types"
	"github.com/abceng/pressline/server/internal/store"
)

const dpr = `machine_id,tool_id,batch_strokes,downtime,multiple_loss_code
1,10,1200,10:30,"[{'lossName': 'Machine Idle', 'lossTime': '5:00'}, {'lossName': 'Jam', 'lossTime': '2:00'}]"
2,50,100,30,[]
`

func compute(data []byte) ([]string, types.Result, error) {
	tbl, err := dataset.Read(strings.NewReader(string(data)), dataset.Options{})
	if err != nil {
		return nil, types.Result{}, err
	}
	return tbl.Header, pipeline.Run(tbl.Records), nil
}

// scrape serves the handler and parses the exposition back into families.
func scrape(t *testing.T, h http.Handler) map[string]*dto.MetricFamily {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	return mfs
}

func value(t *testing.T, mfs map[string]*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	mf, ok := mfs[name]
	if !ok {
		t.Fatalf("family %q missing", name)
	}
	for _, m := range mf.GetMetric() {
		match := true
		for k, v := range labels {
			found := false
			for _, lp := range m.GetLabel() {
				if lp.GetName() == k && lp.GetValue() == v {
					found = true
				}
			}
			match = match && found
		}
		if match {
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("family %q: no sample with labels %v", name, labels)
	return 0
}

func TestHandler_EmptyStore(t *testing.T) {
	st := store.New(time.Minute, compute)
	mfs := scrape(t, Handler(st))

	if v := value(t, mfs, "pressline_reports_cached", nil); v != 0 {
		t.Errorf("reports_cached: got %v, want 0", v)
	}
	if _, ok := mfs["pressline_report_kept_rows"]; ok {
		t.Error("per-report families should be omitted when no report is cached")
	}
}

func TestHandler_ReportFamilies(t *testing.T) {
	st := store.New(time.Minute, compute)
	e, _, err := st.Analyze("line-3.csv", []byte(dpr))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	mfs := scrape(t, Handler(st, Gauge{Name: "ws_clients", Help: "Connected clients.", Value: func() float64 { return 2 }}))
	labels := map[string]string{"source": "line-3.csv", "report_id": e.ID}

	checks := []struct {
		name string
		want float64
	}{
		{"pressline_report_input_rows", 2},
		{"pressline_report_kept_rows", 1},
		{"pressline_report_unparsed_loss_codes", 0},
		{"pressline_report_blank_loss_codes", 0},
		{"pressline_report_raw_downtime_minutes", 630},
		{"pressline_report_net_idle_minutes", 300},
		{"pressline_report_net_downtime_minutes", 330},
		{"pressline_report_batch_strokes", 1200},
	}
	for _, c := range checks {
		if got := value(t, mfs, c.name, labels); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}

	sentinel := map[string]string{"source": "line-3.csv", "cause": "sentinel_tool"}
	if got := value(t, mfs, "pressline_report_dropped_rows", sentinel); got != 1 {
		t.Errorf("dropped sentinel: got %v, want 1", got)
	}
	if got := value(t, mfs, "pressline_latest_loss_reason_occurrences", map[string]string{"reason": "Jam"}); got != 1 {
		t.Errorf("reason Jam: got %v, want 1", got)
	}
	if got := value(t, mfs, "pressline_ws_clients", nil); got != 2 {
		t.Errorf("ws_clients: got %v, want 2", got)
	}
	if mfs["pressline_report_kept_rows"].GetType() != dto.MetricType_GAUGE {
		t.Error("kept_rows should be a gauge")
	}
}

func TestHandler_ContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler(store.New(time.Minute, compute)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q", ct)
	}
}
