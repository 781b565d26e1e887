// Command pressline cleans daily production logs from the command line.
//
// For every input file it writes <name>_clean.csv (the original columns plus
// net_idle_m and net_downtime_m) and <name>_reasons.csv (the loss frequency
// table), optionally a <name>_report.xlsx workbook, and prints headline KPIs.
//
//	pressline [-o dir] [-xlsx] [-comma ;] [-encoding windows-1252] [-top 10] dpr.csv ...
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/abceng/pressline/pkg/dataset"
	"github.com/abceng/pressline/pkg/export"
	"github.com/abceng/pressline/pkg/pipeline"
	"github.com/abceng/pressline/pkg/summary"
	"github.com/abceng/pressline/pkg/types"
)

type options struct {
	outDir string
	xlsx   bool
	top    int
	input  dataset.Options
	stdout io.Writer
}

func main() {
	outDir := flag.String("o", "", "output directory (default: next to each input)")
	xlsx := flag.Bool("xlsx", false, "also write an .xlsx workbook")
	comma := flag.String("comma", ",", "field delimiter (single character)")
	encoding := flag.String("encoding", "utf-8", "input encoding: utf-8 | windows-1252 | iso-8859-1")
	top := flag.Int("top", 10, "number of loss reasons to print")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: pressline [flags] <production-log.csv> ...")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if utf8.RuneCountInString(*comma) != 1 {
		fmt.Fprintf(os.Stderr, "pressline: -comma %q must be a single character\n", *comma)
		os.Exit(2)
	}
	if err := dataset.CheckEncoding(*encoding); err != nil {
		fmt.Fprintf(os.Stderr, "pressline: %v\n", err)
		os.Exit(2)
	}

	r, _ := utf8.DecodeRuneInString(*comma)
	opts := options{
		outDir: *outDir,
		xlsx:   *xlsx,
		top:    *top,
		input:  dataset.Options{Comma: r, Encoding: *encoding},
		stdout: os.Stdout,
	}

	failed := 0
	for _, path := range flag.Args() {
		if err := process(path, opts); err != nil {
			slog.Error("processing failed", "path", path, "err", err)
			fmt.Fprintf(os.Stderr, "pressline: %s: %v\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// process cleans one production log and writes its outputs.
func process(path string, opts options) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	tbl, err := dataset.Read(f, opts.input)
	if err != nil {
		return err
	}
	res := pipeline.Run(tbl.Records)

	dir := opts.outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	written := []string{}
	cleanPath := filepath.Join(dir, stem+"_clean.csv")
	if err := writeFile(cleanPath, func(w io.Writer) error {
		return dataset.WriteCSV(w, tbl.Header, res.Records)
	}); err != nil {
		return err
	}
	written = append(written, cleanPath)

	reasonsPath := filepath.Join(dir, stem+"_reasons.csv")
	if err := writeFile(reasonsPath, func(w io.Writer) error {
		return dataset.WriteReasons(w, res.Reasons)
	}); err != nil {
		return err
	}
	written = append(written, reasonsPath)

	if opts.xlsx {
		xlsxPath := filepath.Join(dir, stem+"_report.xlsx")
		if err := writeFile(xlsxPath, func(w io.Writer) error {
			return export.WriteXLSX(w, tbl.Header, res)
		}); err != nil {
			return err
		}
		written = append(written, xlsxPath)
	}

	printReport(opts.stdout, path, res, opts.top, written)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printReport(w io.Writer, path string, res types.Result, top int, written []string) {
	k := summary.ComputeKPIs(res.Records)
	st := res.Stats

	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  rows: %d read, %d kept, %d dropped (%d placeholder tool, %d non-positive machine, %d missing id)\n",
		st.InputRows, st.KeptRows, st.Dropped(), st.DroppedSentinel, st.DroppedNonPositive, st.DroppedMissingID)
	if st.UnparsedLossCodes > 0 {
		fmt.Fprintf(w, "  warning: %d rows have an unreadable multiple_loss_code\n", st.UnparsedLossCodes)
	}
	if st.BlankLossCodes > 0 {
		fmt.Fprintf(w, "  note: %d rows have no multiple_loss_code\n", st.BlankLossCodes)
	}
	fmt.Fprintf(w, "  total strokes: %.0f\n", k.TotalStrokes)
	fmt.Fprintf(w, "  true downtime: %.1f h   idle: %.1f h   machines: %d\n", k.NetDowntimeHours, k.IdleHours, k.ActiveMachines)

	reasons := summary.TopReasons(res.Reasons, top)
	if len(reasons) > 0 {
		fmt.Fprintf(w, "  top loss reasons:\n")
		for _, rc := range reasons {
			fmt.Fprintf(w, "    %5d  %s\n", rc.Count, rc.Reason)
		}
	}
	for _, p := range written {
		fmt.Fprintf(w, "  wrote %s\n", p)
	}
}
