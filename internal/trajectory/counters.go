package trajectory

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/signalnine/autotune/internal/errs"
)

const (
	DefaultElapsedColumn = "elapsed"
	DefaultStatusColumn  = "status"
	// MemOutMarker in the status column marks a memory-exceeded run.
	MemOutMarker = "MEMOUT"

	// Positions used by SMAC's runs_and_results tables, whose headers
	// carry neither default name.
	smacElapsedIndex = 7
	smacStatusIndex  = 14

	timeoutSlack = 1.1
)

// CounterOpts names the columns of a results table.
type CounterOpts struct {
	ElapsedColumn string
	StatusColumn  string
	// Cutoff is the per-evaluation time limit in seconds.
	Cutoff float64
}

// ReadCounters counts evaluations in a results table file.
func ReadCounters(path string, opts CounterOpts) (Counters, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unrecorded(), errs.NewIOError("open results table", path, err)
	}
	defer f.Close()
	return ParseCounters(f, path, opts)
}

// ParseCounters counts the rows of a headed CSV results table. A row is
// timed out when its elapsed time exceeds 1.1 times the cutoff, and out of
// memory when its status contains MEMOUT. Without a cutoff no row counts as
// timed out.
func ParseCounters(r io.Reader, source string, opts CounterOpts) (Counters, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return Counters{}, nil
	}
	if err != nil {
		return Unrecorded(), errs.NewParseError(source, 1, "", err.Error())
	}
	elapsedIdx := column(header, opts.ElapsedColumn, DefaultElapsedColumn, smacElapsedIndex)
	statusIdx := column(header, opts.StatusColumn, DefaultStatusColumn, smacStatusIndex)

	var c Counters
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return Unrecorded(), errs.NewParseError(source, line, "", err.Error())
		}
		if len(row) <= elapsedIdx || len(row) <= statusIdx {
			return Unrecorded(), errs.NewParseError(source, line, strings.Join(row, ","), "row is missing the elapsed or status column")
		}
		elapsed, err := strconv.ParseFloat(strings.TrimSpace(row[elapsedIdx]), 64)
		if err != nil {
			return Unrecorded(), errs.NewParseError(source, line, row[elapsedIdx], "elapsed time is not a number")
		}
		c.Evaluations++
		if opts.Cutoff > 0 && elapsed > timeoutSlack*opts.Cutoff {
			c.TimeOut++
		}
		if strings.Contains(row[statusIdx], MemOutMarker) {
			c.MemOut++
		}
	}
	return c, nil
}

// column finds name (or def) in header, falling back to a fixed position.
func column(header []string, name, def string, fallback int) int {
	if name == "" {
		name = def
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return fallback
}
