// Package report renders experiment results as text tables, markdown or
// JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/rank"
	"github.com/signalnine/autotune/internal/result"
	"github.com/signalnine/autotune/internal/trajectory"
)

const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

type Row struct {
	Rank       int     `json:"rank"`
	Hash       string  `json:"hash"`
	Args       string  `json:"args"`
	Partitions int     `json:"partitions"`
	Mean       float64 `json:"mean"`
	Time       float64 `json:"time"`
	Complete   bool    `json:"complete"`
}

type Summary struct {
	Experiment     string  `json:"experiment"`
	Configurations int     `json:"configurations"`
	Incomplete     int     `json:"incomplete"`
	Evaluations    int     `json:"evaluations"`
	TotalTime      float64 `json:"total_time"`
	BestMean       float64 `json:"best_mean"`
	MeanScore      float64 `json:"mean_score"`
	StdScore       float64 `json:"std_score"`
	Rows           []Row   `json:"rows"`
}

// Summarize merges records per argument string, ranks them and keeps the
// best top rows. top <= 0 keeps every row.
func Summarize(experiment string, records []*result.Configuration, top int) (*Summary, error) {
	configs, err := rank.Collect(records)
	if err != nil {
		return nil, err
	}
	s := &Summary{Experiment: experiment, Configurations: len(configs), Rows: []Row{}}
	var means, times []float64
	for _, c := range configs {
		s.Evaluations += c.NumPartitions()
		times = append(times, c.TotalTime())
		if !c.Complete() {
			s.Incomplete++
			continue
		}
		if c.NumPartitions() > 0 {
			means = append(means, c.Mean())
		}
	}
	s.TotalTime = floats.Sum(times)
	if len(means) > 0 {
		s.BestMean = floats.Min(means)
		s.MeanScore, s.StdScore = stat.MeanStdDev(means, nil)
	}
	s.Rows = Rows(rank.Top(configs, top))
	return s, nil
}

// Rows numbers already ranked configurations.
func Rows(ranked []*result.Configuration) []Row {
	rows := make([]Row, 0, len(ranked))
	for i, c := range ranked {
		rows = append(rows, Row{
			Rank:       i + 1,
			Hash:       c.Hash(),
			Args:       c.Args(),
			Partitions: c.NumPartitions(),
			Mean:       c.Mean(),
			Time:       c.TotalTime(),
			Complete:   c.Complete(),
		})
	}
	return rows
}

// Generate summarises every record in store and writes it in format.
func Generate(store *result.Store, experiment, format string, top int, w io.Writer) error {
	records, err := store.LoadAll()
	if err != nil {
		return err
	}
	s, err := Summarize(experiment, records, top)
	if err != nil {
		return err
	}
	return Write(s, format, w)
}

// Write renders a summary.
func Write(s *Summary, format string, w io.Writer) error {
	switch format {
	case FormatMarkdown:
		return writeMarkdown(s, w)
	case FormatJSON:
		return writeJSON(s, w)
	case FormatTable, "":
		return writeTable(s, w)
	default:
		return errs.NewInvalidParameter("format", "must be table, markdown or json", format)
	}
}

// WriteRows renders ranked rows without the experiment headline.
func WriteRows(rows []Row, format string, w io.Writer) error {
	switch format {
	case FormatMarkdown:
		return writeMarkdownRows(rows, w)
	case FormatJSON:
		return writeJSON(rows, w)
	case FormatTable, "":
		return writeTableRows(rows, w)
	default:
		return errs.NewInvalidParameter("format", "must be table, markdown or json", format)
	}
}

func writeTable(s *Summary, w io.Writer) error {
	fmt.Fprintf(w, "%s: %d configurations (%d incomplete), %d evaluations, %.1fs\n",
		s.Experiment, s.Configurations, s.Incomplete, s.Evaluations, s.TotalTime)
	return writeTableRows(s.Rows, w)
}

func writeTableRows(rows []Row, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tHASH\tPARTITIONS\tMEAN\tTIME\tCOMPLETE\tARGS")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.4f\t%.1f\t%t\t%s\n",
			r.Rank, r.Hash[:8], r.Partitions, r.Mean, r.Time, r.Complete, r.Args)
	}
	return tw.Flush()
}

func writeMarkdown(s *Summary, w io.Writer) error {
	fmt.Fprintf(w, "## %s\n\n", s.Experiment)
	fmt.Fprintf(w, "%d configurations, %d incomplete, %d evaluations. Best mean %.4f (mean %.4f, sd %.4f).\n\n",
		s.Configurations, s.Incomplete, s.Evaluations, s.BestMean, s.MeanScore, s.StdScore)
	return writeMarkdownRows(s.Rows, w)
}

func writeMarkdownRows(rows []Row, w io.Writer) error {
	fmt.Fprintln(w, "| Rank | Hash | Partitions | Mean | Time | Complete | Args |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|")
	for _, r := range rows {
		fmt.Fprintf(w, "| %d | `%s` | %d | %.4f | %.1f | %t | `%s` |\n",
			r.Rank, r.Hash[:8], r.Partitions, r.Mean, r.Time, r.Complete, strings.TrimSpace(r.Args))
	}
	return nil
}

func writeJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteTrajectories renders the final incumbent and counters of each seed
// in a group.
func WriteTrajectories(g *trajectory.Group, format string, w io.Writer) error {
	switch format {
	case FormatJSON:
		return writeJSON(g, w)
	case FormatMarkdown:
		fmt.Fprintln(w, "| Seed | Points | Time | Score | Evaluations | Timeouts | Memouts | Incumbent |")
		fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|")
		for _, t := range g.Trajectories {
			last, _ := t.Last()
			fmt.Fprintf(w, "| %s | %d | %.1f | %.4f | %d | %d | %d | `%s` |\n", t.Seed, len(t.Points),
				last.Time, last.Score, t.Counters.Evaluations, t.Counters.TimeOut, t.Counters.MemOut, strings.TrimSpace(last.Args))
		}
		return nil
	case FormatTable, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SEED\tPOINTS\tTIME\tSCORE\tEVALUATIONS\tTIMEOUTS\tMEMOUTS\tINCUMBENT")
		for _, t := range g.Trajectories {
			last, _ := t.Last()
			fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.4f\t%d\t%d\t%d\t%s\n", t.Seed, len(t.Points),
				last.Time, last.Score, t.Counters.Evaluations, t.Counters.TimeOut, t.Counters.MemOut, last.Args)
		}
		return tw.Flush()
	default:
		return errs.NewInvalidParameter("format", "must be table, markdown or json", format)
	}
}
