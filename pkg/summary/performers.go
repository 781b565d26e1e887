package summary

import "sort"

// Metric names used in performer tables.
const (
	MetricStrokes     = "total_strokes"
	MetricAvgSPM      = "avg_spm"
	MetricNetDowntime = "net_downtime_m"
)

// Performer is the best and worst group for one metric.
type Performer struct {
	Metric     string  `json:"metric"`
	Label      string  `json:"label"`
	BestKey    string  `json:"best_key"`
	BestValue  float64 `json:"best_value"`
	WorstKey   string  `json:"worst_key"`
	WorstValue float64 `json:"worst_value"`
}

type metricSpec struct {
	name         string
	label        string
	higherBetter bool
	value        func(Group) float64
	usable       func(Group) bool
}

var performerMetrics = []metricSpec{
	{MetricStrokes, "Total Production (Strokes)", true,
		func(g Group) float64 { return g.TotalStrokes }, func(Group) bool { return true }},
	{MetricAvgSPM, "Avg Operating Speed (SPM)", true,
		func(g Group) float64 { return g.AvgSPM }, func(g Group) bool { return g.SPMSamples > 0 }},
	{MetricNetDowntime, "Net True Downtime (Mins)", false,
		func(g Group) float64 { return g.NetDowntimeM }, func(Group) bool { return true }},
}

// Performers ranks groups on strokes, average speed and net downtime.
// Groups without any speed reading are not ranked on speed. Ties keep the
// order of groups. A metric with no usable group is omitted.
func Performers(groups []Group) []Performer {
	out := make([]Performer, 0, len(performerMetrics))
	for _, m := range performerMetrics {
		var ranked []Group
		for _, g := range groups {
			if m.usable(g) {
				ranked = append(ranked, g)
			}
		}
		if len(ranked) == 0 {
			continue
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			if m.higherBetter {
				return m.value(ranked[i]) > m.value(ranked[j])
			}
			return m.value(ranked[i]) < m.value(ranked[j])
		})
		best, worst := ranked[0], ranked[len(ranked)-1]
		out = append(out, Performer{
			Metric:     m.name,
			Label:      m.label,
			BestKey:    best.Key,
			BestValue:  m.value(best),
			WorstKey:   worst.Key,
			WorstValue: m.value(worst),
		})
	}
	return out
}
