package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/autotune/internal/config"
	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/partition"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <experiment.yaml>",
		Short: "Check an experiment before launching workers",
		Long:  "Load the experiment, build its parameter space, then cut every partition from the dataset to make sure none is empty.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger("validate")
			if err != nil {
				return err
			}
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			sp, err := cfg.Space()
			if err != nil {
				return err
			}
			ids, err := cfg.PartitionIDs()
			if err != nil {
				return err
			}
			src, err := loadSource(cfg, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "experiment: %s\n", cfg)
			fmt.Fprintf(out, "dataset:    %s (%d instances, %d classes)\n", cfg.Dataset.Path, src.Train.Len(), len(src.Train.Classes()))
			fmt.Fprintf(out, "parameters: %d (default %q)\n", sp.Len(), sp.Default())
			for _, id := range ids {
				train, test, err := partition.Split(cfg.Partitions.Kind, id, src)
				if err != nil {
					return err
				}
				if train.Len() == 0 || test.Len() == 0 {
					return errs.NewInvalidParameter("partition", "produces an empty slice", id)
				}
				fmt.Fprintf(out, "  %s\ttrain=%d test=%d\n", id, train.Len(), test.Len())
			}
			return nil
		},
	}
}
