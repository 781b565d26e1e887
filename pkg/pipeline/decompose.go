package pipeline

import (
	"math"
	"sort"

	"github.com/abceng/pressline/pkg/types"
)

// Decompose annotates every record with NetIdleM, NetDowntimeM, Reasons and
// LossCodeParsed, and builds the loss frequency table over all non-idle
// reasons. The input slice is not modified.
//
// A record whose loss code does not parse keeps NetIdleM = 0 and contributes
// no reasons; its NetDowntimeM is the raw downtime.
func Decompose(records []types.ProductionRecord) ([]types.ProductionRecord, types.LossFrequencyTable) {
	out := make([]types.ProductionRecord, len(records))
	var counts reasonCounter

	for i, rec := range records {
		events, ok := ParseLossCode(rec.MultipleLossCode)

		var idle float64
		var reasons []string
		for _, ev := range events {
			if ev.Name == types.IdleLossName {
				idle += Minutes(ev.Time)
				continue
			}
			if ev.Name != "" {
				reasons = append(reasons, ev.Name)
			}
		}

		rec.NetIdleM = idle
		rec.NetDowntimeM = math.Max(0, Minutes(rec.Downtime)-idle)
		rec.Reasons = reasons
		rec.LossCodeParsed = ok
		counts.add(reasons)

		out[i] = rec
	}

	return out, counts.table()
}

// reasonCounter counts reasons while remembering first-seen order, which
// breaks ties in the final table.
type reasonCounter struct {
	index map[string]int
	rows  []types.ReasonCount
}

func (c *reasonCounter) add(reasons []string) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	for _, r := range reasons {
		if i, ok := c.index[r]; ok {
			c.rows[i].Count++
			continue
		}
		c.index[r] = len(c.rows)
		c.rows = append(c.rows, types.ReasonCount{Reason: r, Count: 1})
	}
}

func (c *reasonCounter) table() types.LossFrequencyTable {
	out := make(types.LossFrequencyTable, len(c.rows))
	copy(out, c.rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
