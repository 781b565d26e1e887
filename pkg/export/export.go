package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/abceng/pressline/pkg/dataset"
	"github.com/abceng/pressline/pkg/summary"
	"github.com/abceng/pressline/pkg/types"
)

// Sheet names, in workbook order.
const (
	SheetRecords  = "Records"
	SheetKPIs     = "KPIs"
	SheetMachines = "Machines"
	SheetTools    = "Tools"
	SheetShifts   = "Shifts"
	SheetReasons  = "Reasons"
)

var groupHeader = []any{"key", "batches", "total_strokes", "avg_spm", "net_downtime_m", "net_idle_m"}

// Workbook builds the workbook in memory. The caller must Close it.
func Workbook(header []string, res types.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetRecords); err != nil {
		f.Close()
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}
	for _, name := range []string{SheetKPIs, SheetMachines, SheetTools, SheetShifts, SheetReasons} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("export: new sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("export: header style: %w", err)
	}

	w := &sheetWriter{f: f, headerStyle: bold}
	w.records(header, res.Records)
	w.kpis(summary.ComputeKPIs(res.Records), res.Stats)
	w.groups(SheetMachines, summary.GroupBy(res.Records, summary.ByMachine))
	w.groups(SheetTools, summary.GroupBy(res.Records, summary.ByTool))
	w.groups(SheetShifts, summary.GroupBy(res.Records, summary.ByShift))
	w.reasons(res.Reasons)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// WriteXLSX writes the workbook to out.
func WriteXLSX(out io.Writer, header []string, res types.Result) error {
	f, err := Workbook(header, res)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// sheetWriter keeps the first error so sheet builders stay linear.
type sheetWriter struct {
	f           *excelize.File
	headerStyle int
	err         error
}

func (w *sheetWriter) row(sheet string, n int, values []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = fmt.Errorf("export: %s row %d: %w", sheet, n, err)
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("export: %s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) header(sheet string, values []any) {
	w.row(sheet, 1, values)
	if w.err != nil {
		return
	}
	if err := w.f.SetRowStyle(sheet, 1, 1, w.headerStyle); err != nil {
		w.err = fmt.Errorf("export: %s header style: %w", sheet, err)
	}
}

func (w *sheetWriter) records(header []string, records []types.ProductionRecord) {
	out := dataset.OutputHeader(header)
	hdr := make([]any, len(out))
	for i, h := range out {
		hdr[i] = h
	}
	w.header(SheetRecords, hdr)

	idleCol := len(out) - 2
	for i, rec := range records {
		cells := dataset.OutputRow(header, rec)
		values := make([]any, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		// Derived columns are written as numbers so spreadsheets can sum them.
		if out[idleCol] == dataset.ColNetIdleM && out[idleCol+1] == dataset.ColNetDowntimeM {
			values[idleCol] = rec.NetIdleM
			values[idleCol+1] = rec.NetDowntimeM
		}
		w.row(SheetRecords, i+2, values)
	}
}

func (w *sheetWriter) kpis(k summary.KPIs, st types.Stats) {
	w.header(SheetKPIs, []any{"metric", "value"})
	rows := [][]any{
		{"Total Strokes Processed", k.TotalStrokes},
		{"Total True Downtime (Hrs)", k.NetDowntimeHours},
		{"Total Machine Idle (Hrs)", k.IdleHours},
		{"Active Machines Monitored", k.ActiveMachines},
		{"Input Rows", st.InputRows},
		{"Kept Rows", st.KeptRows},
		{"Dropped Rows", st.Dropped()},
		{"Unparsed Loss Codes", st.UnparsedLossCodes},
		{"Blank Loss Codes", st.BlankLossCodes},
	}
	for i, r := range rows {
		w.row(SheetKPIs, i+2, r)
	}
}

func (w *sheetWriter) groups(sheet string, groups []summary.Group) {
	w.header(sheet, groupHeader)
	for i, g := range groups {
		w.row(sheet, i+2, []any{g.Key, g.Batches, g.TotalStrokes, g.AvgSPM, g.NetDowntimeM, g.NetIdleM})
	}
}

func (w *sheetWriter) reasons(table types.LossFrequencyTable) {
	w.header(SheetReasons, []any{"reason", "occurrences"})
	for i, rc := range table {
		w.row(SheetReasons, i+2, []any{rc.Reason, rc.Count})
	}
}
