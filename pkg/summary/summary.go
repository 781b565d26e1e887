package summary

import (
	"fmt"
	"sort"

	"github.com/abceng/pressline/pkg/types"
)

// KPIs are the headline figures of one production log.
type KPIs struct {
	Batches          int     `json:"batches"`
	TotalStrokes     float64 `json:"total_strokes"`
	NetDowntimeHours float64 `json:"net_downtime_hours"`
	IdleHours        float64 `json:"idle_hours"`
	ActiveMachines   int     `json:"active_machines"`
}

// ComputeKPIs totals records. Missing batch_strokes cells count as zero.
func ComputeKPIs(records []types.ProductionRecord) KPIs {
	k := KPIs{Batches: len(records)}
	machines := make(map[float64]struct{})
	var downtime, idle float64
	for _, r := range records {
		if r.BatchStrokes.Valid {
			k.TotalStrokes += r.BatchStrokes.Value
		}
		downtime += r.NetDowntimeM
		idle += r.NetIdleM
		if r.MachineID.Valid {
			machines[r.MachineID.Value] = struct{}{}
		}
	}
	k.NetDowntimeHours = downtime / 60
	k.IdleHours = idle / 60
	k.ActiveMachines = len(machines)
	return k
}

// Key selects the column records are grouped by.
type Key string

const (
	ByMachine Key = "machine"
	ByTool    Key = "tool"
	ByShift   Key = "shift"
)

// ParseKey validates a grouping key.
func ParseKey(s string) (Key, error) {
	switch k := Key(s); k {
	case ByMachine, ByTool, ByShift:
		return k, nil
	default:
		return "", fmt.Errorf("summary: unknown grouping %q: want machine|tool|shift", s)
	}
}

// Group is the aggregate of all records sharing one key value.
type Group struct {
	Key          string  `json:"key"`
	Batches      int     `json:"batches"`
	TotalStrokes float64 `json:"total_strokes"`
	AvgSPM       float64 `json:"avg_spm"`
	SPMSamples   int     `json:"spm_samples"`
	NetDowntimeM float64 `json:"net_downtime_m"`
	NetIdleM     float64 `json:"net_idle_m"`

	sortID float64
}

// NetDowntimeHours is NetDowntimeM in hours.
func (g Group) NetDowntimeHours() float64 { return g.NetDowntimeM / 60 }

// GroupBy aggregates records by key. Machine and tool groups are ordered by
// ascending id. Shift groups are ordered by total strokes, highest first;
// records without a shift label are left out.
func GroupBy(records []types.ProductionRecord, key Key) []Group {
	index := make(map[string]int)
	var groups []Group
	var spmSum []float64

	for _, r := range records {
		label, id, ok := groupKey(r, key)
		if !ok {
			continue
		}
		i, seen := index[label]
		if !seen {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Key: label, sortID: id})
			spmSum = append(spmSum, 0)
		}
		g := &groups[i]
		g.Batches++
		if r.BatchStrokes.Valid {
			g.TotalStrokes += r.BatchStrokes.Value
		}
		if r.ActualSPM.Valid {
			spmSum[i] += r.ActualSPM.Value
			g.SPMSamples++
		}
		g.NetDowntimeM += r.NetDowntimeM
		g.NetIdleM += r.NetIdleM
	}

	for i := range groups {
		if groups[i].SPMSamples > 0 {
			groups[i].AvgSPM = spmSum[i] / float64(groups[i].SPMSamples)
		}
	}

	if key == ByShift {
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].TotalStrokes > groups[j].TotalStrokes
		})
	} else {
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].sortID < groups[j].sortID
		})
	}
	return groups
}

func groupKey(r types.ProductionRecord, key Key) (label string, id float64, ok bool) {
	switch key {
	case ByMachine:
		return r.MachineID.String(), r.MachineID.Value, r.MachineID.Valid
	case ByTool:
		return r.ToolID.String(), r.ToolID.Value, r.ToolID.Valid
	case ByShift:
		return r.Shift, 0, r.Shift != ""
	default:
		return "", 0, false
	}
}

// TopReasons returns the first n entries of table, or all of it when n <= 0.
func TopReasons(table types.LossFrequencyTable, n int) types.LossFrequencyTable {
	if n <= 0 || n >= len(table) {
		return table
	}
	return table[:n]
}
