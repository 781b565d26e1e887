package dataset

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/abceng/pressline/pkg/types"
)

const sampleCSV = `date,machine_id,tool_id,shift,batch_strokes,actual_spm,downtime,multiple_loss_code
2024-03-01,1,10,A,1200,22.5,10:30,"[{'lossName': 'Machine Idle', 'lossTime': '5:00'}, {'lossName': 'Jam', 'lossTime': '2:00'}]"
2024-03-01,2,500,B,800,18,45,[]
2024-03-02,,11,C,,nan,0:15,not valid
`

func TestRead_Sample(t *testing.T) {
	tbl, err := Read(strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "machine_id", "tool_id", "shift", "batch_strokes", "actual_spm", "downtime", "multiple_loss_code"}, tbl.Header)
	require.Len(t, tbl.Records, 3)

	r := tbl.Records[0]
	assert.Equal(t, 2, r.Line)
	assert.Equal(t, types.NumberOf(1), r.MachineID)
	assert.Equal(t, types.NumberOf(10), r.ToolID)
	assert.Equal(t, "A", r.Shift)
	assert.Equal(t, types.NumberOf(1200), r.BatchStrokes)
	assert.Equal(t, types.NumberOf(22.5), r.ActualSPM)
	assert.Equal(t, "10:30", r.Downtime)
	assert.Contains(t, r.MultipleLossCode, "'Machine Idle'")
	assert.Len(t, r.Fields, 8)
	assert.Equal(t, "2024-03-01", r.Fields[0])

	assert.Equal(t, types.NumberOf(500), tbl.Records[1].ToolID)

	third := tbl.Records[2]
	assert.False(t, third.MachineID.Valid)
	assert.False(t, third.BatchStrokes.Valid)
	assert.False(t, third.ActualSPM.Valid)
	assert.Equal(t, 4, third.Line)
}

func TestRead_MissingRequiredColumn(t *testing.T) {
	_, err := Read(strings.NewReader("machine_id,downtime\n1,10\n"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool_id")
	assert.Contains(t, err.Error(), "multiple_loss_code")
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRead_BOMAndPaddedHeader(t *testing.T) {
	in := "\xEF\xBB\xBF machine_id , tool_id,downtime,multiple_loss_code\n3,4,20,[]\n"
	tbl, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, "machine_id", tbl.Header[0])
	assert.Equal(t, types.NumberOf(3), tbl.Records[0].MachineID)
}

func TestRead_RaggedRows(t *testing.T) {
	in := "machine_id,tool_id,downtime,multiple_loss_code\n1,2\n1,2,3,[],extra\n"
	tbl, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, "", tbl.Records[0].Downtime)
	assert.Len(t, tbl.Records[0].Fields, 4)
	assert.Len(t, tbl.Records[1].Fields, 4)
}

func TestRead_Semicolon(t *testing.T) {
	in := "machine_id;tool_id;downtime;multiple_loss_code\n1;2;1:00;[]\n"
	tbl, err := Read(strings.NewReader(in), Options{Comma: ';'})
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, "1:00", tbl.Records[0].Downtime)
}

func TestRead_Windows1252(t *testing.T) {
	raw := "machine_id,tool_id,shift,downtime,multiple_loss_code\n1,2,Früh,5,[]\n"
	encoded, err := charmap.Windows1252.NewEncoder().String(raw)
	require.NoError(t, err)

	tbl, err := Read(strings.NewReader(encoded), Options{Encoding: "windows-1252"})
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, "Früh", tbl.Records[0].Shift)
}

func TestRead_UnknownEncoding(t *testing.T) {
	_, err := Read(strings.NewReader(sampleCSV), Options{Encoding: "ebcdic"})
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want types.Number
	}{
		{"1", types.NumberOf(1)},
		{" 50.0 ", types.NumberOf(50)},
		{"-2", types.NumberOf(-2)},
		{"", types.Number{}},
		{"NaN", types.Number{}},
		{"None", types.Number{}},
		{"abc", types.Number{}},
		{"inf", types.Number{}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseNumber(tc.in), "ParseNumber(%q)", tc.in)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte(sampleCSV))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint([]byte(sampleCSV)))
	assert.NotEqual(t, a, Fingerprint([]byte(sampleCSV+"\n")))
}

func TestWriteCSV(t *testing.T) {
	header := []string{"machine_id", "tool_id", "downtime", "multiple_loss_code"}
	recs := []types.ProductionRecord{
		{Fields: []string{"1", "2", "10:30", "[]"}, NetIdleM: 300, NetDowntimeM: 330.5},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, header, recs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, append(header, ColNetIdleM, ColNetDowntimeM), rows[0])
	assert.Equal(t, []string{"1", "2", "10:30", "[]", "300", "330.5"}, rows[1])
}

func TestWriteCSV_ReprocessedHeader(t *testing.T) {
	header := []string{"machine_id", "net_idle_m", "tool_id", "net_downtime_m"}
	recs := []types.ProductionRecord{
		{Fields: []string{"1", "999", "2", "999"}, NetIdleM: 5, NetDowntimeM: 6},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, header, recs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{"1", "5", "2", "6"}, rows[1])
}

func TestWriteReasons(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReasons(&buf, types.LossFrequencyTable{{Reason: "Jam", Count: 3}, {Reason: "Coil, end", Count: 1}}))
	assert.Equal(t, "reason,occurrences\nJam,3\n\"Coil, end\",1\n", buf.String())
}
