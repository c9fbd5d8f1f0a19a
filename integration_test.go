//go:build integration

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/autotune/cmd"
	"github.com/signalnine/autotune/internal/config"
	"github.com/signalnine/autotune/internal/result"
)

const containerExperiment = `
name: toy
dataset:
  path: toy.csv
  class_column: class
partitions:
  kind: subsample
  args: startingSeed=0:numSamples=2:percent=50:bias=0
tuner_timeout: 120
train_timeout: 30
evaluate_default: true
evaluator:
  command: sh
  args: [evaluate.sh]
  isolation: container
  image: alpine:latest
parameters:
  - name: k
    type: categorical
    values: ["1", "3"]
`

// The script checks that the dataset is visible through the workspace mount.
const containerScript = `test -f "$AUTOTUNE_DATASET" || { echo "no dataset"; exit 1; }
score=40
case "$*" in *"-k 3"*) score=25 ;; esac
echo "Time(0.5) Score($score)"
`

func TestContainerWorkerIntegration(t *testing.T) {
	if os.Getenv("AUTOTUNE_DOCKER_TESTS") == "" {
		t.Skip("set AUTOTUNE_DOCKER_TESTS=1 to run integration tests")
	}

	dir := t.TempDir()
	for name, body := range map[string]string{
		"toy.csv":     "a,class\n1,x\n2,x\n3,y\n4,y\n",
		"evaluate.sh": containerScript,
		"toy.yaml":    containerExperiment,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	exp := filepath.Join(dir, "toy.yaml")

	root := cmd.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"worker", exp, "0"})
	if err := root.Execute(); err != nil {
		t.Fatalf("worker: %v\n%s", err, out.String())
	}

	cfg, err := config.Load(exp)
	if err != nil {
		t.Fatal(err)
	}
	records, err := result.NewStore(cfg.Dir).LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected both points evaluated, got %d", len(records))
	}
	for _, r := range records {
		if r.NumPartitions() != 3 || !r.Complete() {
			t.Errorf("%q: %d partitions, complete=%t", r.Args(), r.NumPartitions(), r.Complete())
		}
		want := 40.0
		if strings.Contains(r.Args(), "-k 3") {
			want = 25
		}
		if r.Mean() != want {
			t.Errorf("%q: mean %v, want %v", r.Args(), r.Mean(), want)
		}
	}
}
