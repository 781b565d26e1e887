package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/abceng/pressline/pkg/types"
)

// OutputHeader returns header extended with the derived columns. A header
// that already carries them (a re-processed output file) is returned as is.
func OutputHeader(header []string) []string {
	out := append([]string(nil), header...)
	for _, c := range []string{ColNetIdleM, ColNetDowntimeM} {
		if indexOf(out, c) < 0 {
			out = append(out, c)
		}
	}
	return out
}

// OutputRow returns the cells of rec aligned with OutputHeader(header).
// Derived columns already present in the input are overwritten.
func OutputRow(header []string, rec types.ProductionRecord) []string {
	outHeader := OutputHeader(header)
	row := make([]string, len(outHeader))
	copy(row, rec.Fields)
	row[indexOf(outHeader, ColNetIdleM)] = formatFloat(rec.NetIdleM)
	row[indexOf(outHeader, ColNetDowntimeM)] = formatFloat(rec.NetDowntimeM)
	return row
}

// WriteCSV writes the augmented record set as CSV.
func WriteCSV(w io.Writer, header []string, records []types.ProductionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputHeader(header)); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}
	for i, rec := range records {
		if err := cw.Write(OutputRow(header, rec)); err != nil {
			return fmt.Errorf("dataset: write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReasons writes the loss frequency table as a two-column CSV.
func WriteReasons(w io.Writer, table types.LossFrequencyTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"reason", "occurrences"}); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}
	for _, rc := range table {
		if err := cw.Write([]string{rc.Reason, strconv.Itoa(rc.Count)}); err != nil {
			return fmt.Errorf("dataset: write reason %q: %w", rc.Reason, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
