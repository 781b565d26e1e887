package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abceng/pressline/pkg/dataset"
)

const dpr = `machine_id,tool_id,shift,batch_strokes,actual_spm,downtime,multiple_loss_code
1,10,A,1200,22.5,10:30,"[{'lossName': 'Machine Idle', 'lossTime': '5:00'}, {'lossName': 'Jam', 'lossTime': '2:00'}]"
2,500,B,800,18,45,[]
3,11,B,400,20,25,garbage
`

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestProcess_WritesOutputs(t *testing.T) {
	in := filepath.Join(t.TempDir(), "dpr_march.csv")
	require.NoError(t, os.WriteFile(in, []byte(dpr), 0o600))
	out := filepath.Join(t.TempDir(), "out")

	var stdout bytes.Buffer
	err := process(in, options{outDir: out, xlsx: true, top: 5, stdout: &stdout})
	require.NoError(t, err)

	clean := readCSV(t, filepath.Join(out, "dpr_march_clean.csv"))
	require.Len(t, clean, 3)
	assert.Equal(t, []string{"net_idle_m", "net_downtime_m"}, clean[0][7:])
	assert.Equal(t, []string{"300", "330"}, clean[1][7:])
	assert.Equal(t, []string{"0", "25"}, clean[2][7:])

	reasons := readCSV(t, filepath.Join(out, "dpr_march_reasons.csv"))
	assert.Equal(t, [][]string{{"reason", "occurrences"}, {"Jam", "1"}}, reasons)

	assert.FileExists(t, filepath.Join(out, "dpr_march_report.xlsx"))

	report := stdout.String()
	assert.Contains(t, report, "3 read, 2 kept, 1 dropped")
	assert.Contains(t, report, "1 rows have an unreadable multiple_loss_code")
	assert.Contains(t, report, "total strokes: 1600")
	assert.Contains(t, report, "Jam")
}

func TestProcess_DefaultsToInputDir(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dpr.csv")
	require.NoError(t, os.WriteFile(in, []byte(dpr), 0o600))

	require.NoError(t, process(in, options{stdout: &bytes.Buffer{}}))
	assert.FileExists(t, filepath.Join(dir, "dpr_clean.csv"))
	assert.FileExists(t, filepath.Join(dir, "dpr_reasons.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "dpr_report.xlsx"))
}

func TestProcess_SemicolonInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dpr.csv")
	data := "machine_id;tool_id;downtime;multiple_loss_code\n1;10;1:00;[]\n"
	require.NoError(t, os.WriteFile(in, []byte(data), 0o600))

	err := process(in, options{input: dataset.Options{Comma: ';'}, stdout: &bytes.Buffer{}})
	require.NoError(t, err)

	clean := readCSV(t, filepath.Join(dir, "dpr_clean.csv"))
	require.Len(t, clean, 2)
	assert.Equal(t, "60", clean[1][len(clean[1])-1])
}

func TestProcess_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, process(filepath.Join(dir, "missing.csv"), options{stdout: &bytes.Buffer{}}))

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("a,b\n1,2\n"), 0o600))
	assert.Error(t, process(bad, options{stdout: &bytes.Buffer{}}))
	assert.NoFileExists(t, filepath.Join(dir, "bad_clean.csv"))
}

func TestProcess_BlankLossCodeIsNotUnreadable(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dpr.csv")
	data := "machine_id,tool_id,downtime,multiple_loss_code\n1,10,1:00,\n"
	require.NoError(t, os.WriteFile(in, []byte(data), 0o600))

	var stdout bytes.Buffer
	require.NoError(t, process(in, options{stdout: &stdout}))
	assert.Contains(t, stdout.String(), "1 rows have no multiple_loss_code")
	assert.NotContains(t, stdout.String(), "unreadable")
}
