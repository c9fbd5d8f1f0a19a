package report_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/autotune/internal/report"
	"github.com/signalnine/autotune/internal/result"
	"github.com/signalnine/autotune/internal/trajectory"
)

func record(args, worker string, scores ...float64) *result.Configuration {
	c := result.NewConfiguration(args)
	c.Worker = worker
	for i, s := range scores {
		c.Add(result.PartitionResult{Partition: worker + string(rune('0'+i)), Score: s, Time: 2, Completed: true})
	}
	return c
}

func seedStore(t *testing.T) *result.Store {
	t.Helper()
	store := result.NewStore(filepath.Join(t.TempDir(), "exp"))
	half := record("-C 0.5 ", "w2", 30)
	half.MarkIncomplete()
	for _, c := range []*result.Configuration{
		record("-C 0.1 ", "w1", 10, 20),
		record("-C 0.2 ", "w1", 4, 6),
		half,
	} {
		if _, err := store.Claim(c.Hash()); err != nil {
			t.Fatal(err)
		}
		if err := store.Save(c); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestGenerateTable(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Generate(seedStore(t), "iris", "table", 0, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "iris: 3 configurations (1 incomplete), 5 evaluations, 10.0s") {
		t.Errorf("missing headline:\n%s", out)
	}
	first := strings.Index(out, "-C 0.2")
	second := strings.Index(out, "-C 0.1")
	third := strings.Index(out, "-C 0.5")
	if first < 0 || !(first < second && second < third) {
		t.Errorf("rows out of rank order:\n%s", out)
	}
}

func TestGenerateJSONTop(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Generate(seedStore(t), "iris", "json", 1, &buf); err != nil {
		t.Fatal(err)
	}
	var s report.Summary
	if err := json.Unmarshal(buf.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if len(s.Rows) != 1 || s.Rows[0].Args != "-C 0.2 " || s.Rows[0].Mean != 5 {
		t.Errorf("unexpected rows %+v", s.Rows)
	}
	if s.BestMean != 5 || s.MeanScore != 10 {
		t.Errorf("best %v mean %v", s.BestMean, s.MeanScore)
	}
}

func TestSummarizeMergesWorkers(t *testing.T) {
	s, err := report.Summarize("x", []*result.Configuration{
		record("-C 1 ", "a", 10, 20),
		record("-C 1 ", "b", 0, 0),
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Configurations != 1 || s.Rows[0].Partitions != 4 || s.Rows[0].Mean != 7.5 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestMarkdownAndBadFormat(t *testing.T) {
	s, _ := report.Summarize("x", []*result.Configuration{record("-C 1 ", "a", 1)}, 0)
	var buf bytes.Buffer
	if err := report.Write(s, "markdown", &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "| 1 | `") {
		t.Errorf("markdown row missing:\n%s", buf.String())
	}
	if err := report.Write(s, "html", &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteTrajectories(t *testing.T) {
	traj := trajectory.New("3")
	traj.Counters = trajectory.Counters{Evaluations: 12, TimeOut: 1}
	_ = traj.AddPoint(trajectory.Point{Time: 5, Score: 0.25, Args: "-C 1 "})
	g := &trajectory.Group{Experiment: "x"}
	g.Add(traj)

	var buf bytes.Buffer
	if err := report.WriteTrajectories(g, "table", &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "0.2500") || !strings.Contains(buf.String(), "12") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}
