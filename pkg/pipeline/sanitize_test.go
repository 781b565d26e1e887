package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abceng/pressline/pkg/types"
)

func rec(line int, machine, tool types.Number) types.ProductionRecord {
	return types.ProductionRecord{Line: line, MachineID: machine, ToolID: tool}
}

func TestSanitize_DropsSentinelTools(t *testing.T) {
	in := []types.ProductionRecord{
		rec(2, types.NumberOf(1), types.NumberOf(50)),
		rec(3, types.NumberOf(1), types.NumberOf(500.0)),
		rec(4, types.NumberOf(1), types.NumberOf(51)),
		rec(5, types.NumberOf(2), types.NumberOf(5)),
	}
	out, st := Sanitize(in)

	require.Len(t, out, 2)
	assert.Equal(t, 4, out[0].Line)
	assert.Equal(t, 5, out[1].Line)
	assert.Equal(t, 2, st.SentinelTool)
	assert.Equal(t, 4, st.Input)
	assert.Equal(t, 2, st.Kept)
}

func TestSanitize_DropsNonPositiveMachine(t *testing.T) {
	in := []types.ProductionRecord{
		rec(2, types.NumberOf(0), types.NumberOf(7)),
		rec(3, types.NumberOf(-3), types.NumberOf(7)),
		rec(4, types.NumberOf(0.5), types.NumberOf(7)),
	}
	out, st := Sanitize(in)

	require.Len(t, out, 1)
	assert.Equal(t, 4, out[0].Line)
	assert.Equal(t, 2, st.NonPositiveMachine)
}

func TestSanitize_DropsMissingIDs(t *testing.T) {
	in := []types.ProductionRecord{
		rec(2, types.Number{}, types.NumberOf(7)),
		rec(3, types.NumberOf(1), types.Number{}),
		rec(4, types.Number{}, types.Number{}),
	}
	out, st := Sanitize(in)

	assert.Empty(t, out)
	assert.Equal(t, 3, st.MissingID)
}

func TestSanitize_PreservesOrderAndInput(t *testing.T) {
	in := make([]types.ProductionRecord, 0, 20)
	for i := 0; i < 20; i++ {
		tool := float64(i)
		if i%5 == 0 {
			tool = 500
		}
		in = append(in, rec(i+2, types.NumberOf(float64(i%3+1)), types.NumberOf(tool)))
	}
	snapshot := append([]types.ProductionRecord(nil), in...)

	out, _ := Sanitize(in)

	assert.Equal(t, snapshot, in, "input must not be modified")
	require.Len(t, out, 16)
	for i := 1; i < len(out); i++ {
		assert.Less(t, out[i-1].Line, out[i].Line)
	}
}

func TestSanitize_NoFalsePositives(t *testing.T) {
	var in []types.ProductionRecord
	for m := 1; m <= 5; m++ {
		for _, tool := range []float64{1, 49, 49.9, 50.5, 499, 501, 5000} {
			in = append(in, rec(len(in)+2, types.NumberOf(float64(m)), types.NumberOf(tool)))
		}
	}
	out, st := Sanitize(in)
	assert.Len(t, out, len(in))
	assert.Zero(t, st.SentinelTool+st.NonPositiveMachine+st.MissingID)
}
