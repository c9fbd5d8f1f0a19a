package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/autotune/internal/report"
	"github.com/signalnine/autotune/internal/trajectory"
)

const evaluateScript = `#!/bin/sh
score=50
while [ $# -gt 0 ]; do
  case "$1" in
    -classifier) shift
      case "$1" in j48) score=10 ;; smo) score=20 ;; *) score=30 ;; esac ;;
  esac
  shift
done
echo "Time(0.01) Score($score)"
`

const experimentYAML = `
name: toy
dataset:
  path: toy.csv
  class_column: class
partitions:
  kind: crossvalidation
  args: seed=0:numFolds=2
tuner_timeout: 60
train_timeout: 10
evaluator:
  command: ./evaluate.sh
parameters:
  - name: classifier
    type: categorical
    values: [j48, smo, knn]
    default: j48
trajectory:
  log: traj-{SEED}.csv
`

func writeExperiment(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"toy.csv":     "a,b,class\n1,2,x\n2,3,x\n3,4,y\n4,5,y\n5,6,x\n6,7,y\n",
		"evaluate.sh": evaluateScript,
		"toy.yaml":    experimentYAML,
		"traj-0.csv":  "1.0, 30, 0, 0, 0, classifier='knn'\n2.0, 10, 0, 0, 0, classifier='j48'\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "toy.yaml")
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	if err := root.Execute(); err != nil {
		t.Fatalf("autotune %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestWorkerThenRankAndReport(t *testing.T) {
	exp := writeExperiment(t)
	execute(t, "worker", exp, "0")

	var rows []report.Row
	if err := json.Unmarshal([]byte(execute(t, "rank", exp, "--format", "json", "-n", "0")), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected every point of the space, got %d rows", len(rows))
	}
	if rows[0].Args != "-classifier j48 " || rows[0].Mean != 10 || rows[0].Partitions != 2 {
		t.Errorf("unexpected leader %+v", rows[0])
	}

	out := execute(t, "rank", exp, "--incumbent=-classifier j48 ", "-n", "1")
	if !strings.Contains(out, "-classifier j48") || strings.Contains(out, "smo") {
		t.Errorf("unexpected rank output:\n%s", out)
	}

	out = execute(t, "report", exp)
	if !strings.Contains(out, "toy: 3 configurations (0 incomplete), 6 evaluations") {
		t.Errorf("unexpected report:\n%s", out)
	}
}

func TestPartitionsAndSplit(t *testing.T) {
	exp := writeExperiment(t)
	out := execute(t, "partitions", exp)
	if out != "seed=0:numFolds=2:fold=0\nseed=0:numFolds=2:fold=1\n" {
		t.Errorf("partitions: %q", out)
	}
	out = execute(t, "partitions", exp, "--features")
	if !strings.Contains(out, "numInstances=3") {
		t.Errorf("features: %q", out)
	}

	dir := t.TempDir()
	execute(t, "split", exp, "seed=0:numFolds=2:fold=1", "--out", dir)
	for _, name := range []string{"train.csv", "test.csv"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if lines := strings.Count(string(data), "\n"); lines != 4 {
			t.Errorf("%s: %d lines, want header plus 3 rows", name, lines)
		}
	}

	out = execute(t, "validate", exp)
	if !strings.Contains(out, "train=3 test=3") {
		t.Errorf("validate:\n%s", out)
	}
}

func TestTrajectoryParseAndMerge(t *testing.T) {
	exp := writeExperiment(t)
	cfgDir := filepath.Dir(exp)
	// the default backend keeps no trajectory; switch to the line parser
	body, _ := os.ReadFile(exp)
	if err := os.WriteFile(exp, []byte("backend: smac\n"+string(body)), 0o644); err != nil {
		t.Fatal(err)
	}

	execute(t, "trajectory", exp, "0", "--truncate", "1.5")
	out := execute(t, "trajectory", exp, "--format", "json")
	var g trajectory.Group
	if err := json.Unmarshal([]byte(out), &g); err != nil {
		t.Fatal(err)
	}
	if len(g.Trajectories) != 1 || len(g.Trajectories[0].Points) != 1 {
		t.Fatalf("unexpected group %+v", g)
	}
	if g.Trajectories[0].Points[0].Args != "-classifier knn " {
		t.Errorf("truncation kept %+v", g.Trajectories[0].Points)
	}
	if _, err := os.Stat(filepath.Join(cfgDir, "toy.trajectories")); err != nil {
		t.Errorf("merged group not written: %v", err)
	}
}
