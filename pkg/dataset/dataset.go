package dataset

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/abceng/pressline/pkg/types"
)

// Column names of a production log.
const (
	ColMachineID        = "machine_id"
	ColToolID           = "tool_id"
	ColShift            = "shift"
	ColBatchStrokes     = "batch_strokes"
	ColActualSPM        = "actual_spm"
	ColDowntime         = "downtime"
	ColMultipleLossCode = "multiple_loss_code"

	ColNetIdleM     = "net_idle_m"
	ColNetDowntimeM = "net_downtime_m"
)

var requiredColumns = []string{ColMachineID, ColToolID, ColDowntime, ColMultipleLossCode}

// ErrEmpty is returned by Read when the input has no header row.
var ErrEmpty = errors.New("dataset: empty input")

// Options controls how Read decodes its input.
type Options struct {
	// Comma is the field delimiter. Defaults to ','.
	Comma rune

	// Encoding is one of utf-8 (default), windows-1252, iso-8859-1.
	Encoding string
}

// Table is a production log as read from one file.
type Table struct {
	Header  []string
	Records []types.ProductionRecord
}

// Read parses a production log from r.
func Read(r io.Reader, opts Options) (*Table, error) {
	dec, err := decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(transform.NewReader(r, dec))
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}

	header = append([]string(nil), header...)
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset: missing required columns: %s", strings.Join(missing, ", "))
	}

	t := &Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		t.Records = append(t.Records, toRecord(line, pad(row, len(header)), cols))
	}
	return t, nil
}

func toRecord(line int, row []string, cols map[string]int) types.ProductionRecord {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok {
			return ""
		}
		return row[i]
	}
	return types.ProductionRecord{
		Line:             line,
		MachineID:        ParseNumber(cell(ColMachineID)),
		ToolID:           ParseNumber(cell(ColToolID)),
		Shift:            strings.TrimSpace(cell(ColShift)),
		BatchStrokes:     ParseNumber(cell(ColBatchStrokes)),
		ActualSPM:        ParseNumber(cell(ColActualSPM)),
		Downtime:         cell(ColDowntime),
		MultipleLossCode: cell(ColMultipleLossCode),
		Fields:           row,
	}
}

// pad returns row resized to n cells: short rows gain empty cells, surplus
// cells past the header are dropped.
func pad(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}

// ParseNumber reads a numeric cell. Empty cells and the null spellings
// written by spreadsheet and dataframe tools are invalid, as is any text
// that is not a finite number.
func ParseNumber(s string) types.Number {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "na", "n/a":
		return types.Number{}
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return types.Number{}
	}
	return types.NumberOf(f)
}

func decoder(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("dataset: unsupported encoding %q", name)
	}
}

// Fingerprint returns the hex SHA-256 of raw input bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CheckEncoding reports whether Read supports the named encoding.
func CheckEncoding(name string) error {
	_, err := decoder(name)
	return err
}
