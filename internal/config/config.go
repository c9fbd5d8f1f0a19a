// Package config loads experiment definitions from YAML.
package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/autotune/internal/docker"
	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/evaluator"
	"github.com/signalnine/autotune/internal/partition"
	"github.com/signalnine/autotune/internal/runner"
	"github.com/signalnine/autotune/internal/space"
	"github.com/signalnine/autotune/internal/trajectory"
)

// DatasetEnv and friends tell the evaluator command where the data lives.
const (
	DatasetEnv       = "AUTOTUNE_DATASET"
	TestDatasetEnv   = "AUTOTUNE_TEST_DATASET"
	ClassColumnEnv   = "AUTOTUNE_CLASS_COLUMN"
	PartitionKindEnv = "AUTOTUNE_PARTITION_KIND"
	ExperimentEnv    = "AUTOTUNE_EXPERIMENT"
)

type Config struct {
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"`

	Dataset    Dataset    `yaml:"dataset"`
	Partitions Partitions `yaml:"partitions"`

	// TunerTimeout is the evaluation budget of each worker, in seconds.
	TunerTimeout float64 `yaml:"tuner_timeout"`
	// TrainTimeout is the per-evaluation limit, in seconds.
	TrainTimeout float64 `yaml:"train_timeout"`

	Penalty          float64   `yaml:"penalty"`
	FailureThreshold float64   `yaml:"failure_threshold"`
	MaxFailures      int       `yaml:"max_failures"`
	EvaluateDefault  bool      `yaml:"evaluate_default"`
	Evaluator        Evaluator `yaml:"evaluator"`

	Parameters []space.Parameter `yaml:"parameters"`
	Trajectory Trajectory        `yaml:"trajectory"`
	Results    Results           `yaml:"results"`

	// Dir is the experiment directory: results.dir, or the directory of
	// the YAML file.
	Dir  string `yaml:"-"`
	Path string `yaml:"-"`
}

type Dataset struct {
	Path        string `yaml:"path"`
	ClassColumn string `yaml:"class_column"`
	TestPath    string `yaml:"test_path"`
}

type Partitions struct {
	Kind string `yaml:"kind"`
	Args string `yaml:"args"`
}

type Evaluator struct {
	Command       string            `yaml:"command"`
	Args          []string          `yaml:"args"`
	Isolation     string            `yaml:"isolation"`
	Image         string            `yaml:"image"`
	CPULimit      float64           `yaml:"cpu_limit"`
	MemoryLimitMB int               `yaml:"memory_limit_mb"`
	Env           map[string]string `yaml:"env"`
	EnvFile       string            `yaml:"env_file"`
}

type Trajectory struct {
	TranslationFile string `yaml:"translation_file"`
	Log             string `yaml:"log"`
	ResultsTable    string `yaml:"results_table"`
	ElapsedColumn   string `yaml:"elapsed_column"`
	StatusColumn    string `yaml:"status_column"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewIOError("read experiment", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.NewParseError(path, 0, "", err.Error())
	}
	cfg.Path = path
	if err := validate(&cfg); err != nil {
		return nil, errs.Wrapf(err, "invalid experiment %s", path)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	base := filepath.Dir(cfg.Path)
	if cfg.Name == "" {
		cfg.Name = trimExt(filepath.Base(cfg.Path))
	}
	if cfg.Backend == "" {
		cfg.Backend = trajectory.BackendRandomSearch
	}
	if _, err := trajectory.Lookup(cfg.Backend); err != nil {
		return err
	}

	if cfg.Dataset.Path == "" {
		return invalid("dataset.path", "is required", "")
	}
	cfg.Dataset.Path = resolve(base, cfg.Dataset.Path)
	cfg.Dataset.TestPath = resolve(base, cfg.Dataset.TestPath)

	kind, err := partition.NormalizeKind(cfg.Partitions.Kind)
	if err != nil {
		return err
	}
	cfg.Partitions.Kind = string(kind)
	if _, err := partition.Enumerate(cfg.Partitions.Kind, cfg.Partitions.Args); err != nil {
		return err
	}

	if cfg.TunerTimeout <= 0 {
		return invalid("tuner_timeout", "must be positive", cfg.TunerTimeout)
	}
	if cfg.TrainTimeout <= 0 {
		return invalid("train_timeout", "must be positive", cfg.TrainTimeout)
	}
	if cfg.Penalty == 0 {
		cfg.Penalty = evaluator.DefaultPenalty
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = runner.DefaultFailureThreshold
	}
	if cfg.Penalty < cfg.FailureThreshold {
		return invalid("penalty", "must be at least failure_threshold", cfg.Penalty)
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = runner.DefaultMaxFailures
	}

	ev := &cfg.Evaluator
	if ev.Command == "" {
		return invalid("evaluator.command", "is required", "")
	}
	if ev.Isolation == "" {
		ev.Isolation = string(evaluator.IsolationProcess)
	}
	switch evaluator.Isolation(ev.Isolation) {
	case evaluator.IsolationProcess:
	case evaluator.IsolationContainer:
		if ev.Image == "" {
			return invalid("evaluator.image", "is required for container isolation", "")
		}
	default:
		return invalid("evaluator.isolation", "must be process or container", ev.Isolation)
	}
	ev.EnvFile = resolve(base, ev.EnvFile)

	if len(cfg.Parameters) == 0 {
		return invalid("parameters", "at least one parameter is required", "")
	}
	if _, err := space.New(cfg.Parameters); err != nil {
		return err
	}

	tr := &cfg.Trajectory
	tr.TranslationFile = resolve(base, tr.TranslationFile)
	tr.Log = resolve(base, tr.Log)
	tr.ResultsTable = resolve(base, tr.ResultsTable)

	cfg.Dir = base
	if cfg.Results.Dir != "" {
		cfg.Dir = resolve(base, cfg.Results.Dir)
	}
	return nil
}

// Space builds the parameter space. Load has already validated it.
func (c *Config) Space() (*space.Space, error) {
	return space.New(c.Parameters)
}

// PartitionIDs lists the partitions every configuration is evaluated on.
func (c *Config) PartitionIDs() ([]string, error) {
	return runner.Partitions(c.Partitions.Kind, c.Partitions.Args, c.EvaluateDefault)
}

// Budget is the evaluation time each worker may charge.
func (c *Config) Budget() time.Duration { return seconds(c.TunerTimeout) }

// Timeout is the limit of one evaluation.
func (c *Config) Timeout() time.Duration { return seconds(c.TrainTimeout) }

// EvaluatorOptions assembles the evaluator settings for one worker seed.
// The dataset location and partition kind are exported to the command's
// environment.
func (c *Config) EvaluatorOptions(seed string) evaluator.Options {
	env := map[string]string{
		DatasetEnv:       c.childPath(c.Dataset.Path),
		ClassColumnEnv:   c.Dataset.ClassColumn,
		PartitionKindEnv: c.Partitions.Kind,
		ExperimentEnv:    c.childPath(c.Path),
	}
	if c.Dataset.TestPath != "" {
		env[TestDatasetEnv] = c.childPath(c.Dataset.TestPath)
	}
	for k, v := range c.Evaluator.Env {
		env[k] = v
	}
	return evaluator.Options{
		Command:       c.Evaluator.Command,
		Args:          c.Evaluator.Args,
		Isolation:     evaluator.Isolation(c.Evaluator.Isolation),
		WorkDir:       c.Dir,
		Env:           env,
		EnvFile:       c.Evaluator.EnvFile,
		Seed:          seed,
		Penalty:       c.Penalty,
		Image:         c.Evaluator.Image,
		CPULimit:      c.Evaluator.CPULimit,
		MemoryLimitMB: c.Evaluator.MemoryLimitMB,
	}
}

// childPath maps a host path into the evaluator's view. Containers see the
// experiment directory at /workspace; paths outside it are left alone.
func (c *Config) childPath(p string) string {
	if evaluator.Isolation(c.Evaluator.Isolation) != evaluator.IsolationContainer {
		return p
	}
	rel, err := filepath.Rel(c.Dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return p
	}
	return path.Join(docker.WorkspaceDir, filepath.ToSlash(rel))
}

func invalid(field, reason string, value any) error {
	return errs.NewInvalidParameter(field, reason, value)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// String summarises the experiment for logs.
func (c *Config) String() string {
	return fmt.Sprintf("%s (%s, %s)", c.Name, c.Backend, c.Partitions.Kind)
}
