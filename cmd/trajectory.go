package cmd

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/signalnine/autotune/internal/config"
	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/report"
	"github.com/signalnine/autotune/internal/trajectory"
)

// SeedPlaceholder in trajectory paths is replaced by the worker seed.
const SeedPlaceholder = "{SEED}"

var (
	flagTruncate   float64
	flagTrajFormat string
)

func newTrajectoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trajectory <experiment.yaml> [seed]",
		Short: "Parse a seed's optimizer log, or merge every parsed seed",
		Long: "With a seed, parse that run's native trajectory log into " +
			"<dir>/<name>.trajectories.<seed>. Without one, merge every per-seed " +
			"file into <dir>/<name>.trajectories.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger("trajectory")
			if err != nil {
				return err
			}
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			var g *trajectory.Group
			if len(args) == 2 {
				g, err = parseSeed(cfg, args[1], log)
			} else {
				g, err = trajectory.MergeGroups(cfg.Dir, cfg.Name)
			}
			if err != nil {
				return err
			}
			if flagTruncate > 0 {
				for _, t := range g.Trajectories {
					t.Truncate(flagTruncate)
				}
			}
			seed := ""
			if len(args) == 2 {
				seed = args[1]
			}
			if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
				return errs.NewIOError("create experiment dir", cfg.Dir, err)
			}
			if err := g.Save(trajectory.GroupPath(cfg.Dir, cfg.Name, seed)); err != nil {
				return err
			}
			return report.WriteTrajectories(g, flagTrajFormat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Float64Var(&flagTruncate, "truncate", 0, "drop incumbents found after this many seconds")
	cmd.Flags().StringVar(&flagTrajFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}

func parseSeed(cfg *config.Config, seed string, log zerolog.Logger) (*trajectory.Group, error) {
	sp, err := cfg.Space()
	if err != nil {
		return nil, err
	}
	in := trajectory.Inputs{
		Seed:         seed,
		Log:          strings.ReplaceAll(cfg.Trajectory.Log, SeedPlaceholder, seed),
		ResultsTable: strings.ReplaceAll(cfg.Trajectory.ResultsTable, SeedPlaceholder, seed),
		Filter:       sp.Filter,
		Columns: trajectory.CounterOpts{
			ElapsedColumn: cfg.Trajectory.ElapsedColumn,
			StatusColumn:  cfg.Trajectory.StatusColumn,
			Cutoff:        cfg.TrainTimeout,
		},
		Logger: log,
	}
	if cfg.Trajectory.TranslationFile != "" {
		if in.Translation, err = trajectory.ReadTranslation(cfg.Trajectory.TranslationFile); err != nil {
			return nil, err
		}
	}
	t, err := trajectory.Parse(cfg.Backend, in)
	if err != nil {
		return nil, err
	}
	g := &trajectory.Group{Experiment: cfg.Name}
	g.Add(t)
	return g, nil
}
