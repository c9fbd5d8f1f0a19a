package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/autotune/internal/config"
	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/partition"
)

var flagOut string

// newSplitCmd materialises one partition as train.csv and test.csv so an
// evaluator command can read it.
func newSplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <experiment.yaml> <partition-id>",
		Short: "Write the training and test slices of one partition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger("split")
			if err != nil {
				return err
			}
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			src, err := loadSource(cfg, log)
			if err != nil {
				return err
			}
			train, test, err := partition.Split(cfg.Partitions.Kind, args[1], src)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(flagOut, 0o755); err != nil {
				return errs.NewIOError("create output dir", flagOut, err)
			}
			trainPath := filepath.Join(flagOut, "train.csv")
			testPath := filepath.Join(flagOut, "test.csv")
			if err := train.SaveCSV(trainPath); err != nil {
				return err
			}
			if err := test.SaveCSV(testPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n%s\t%d\n", trainPath, train.Len(), testPath, test.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&flagOut, "out", ".", "directory to write train.csv and test.csv into")
	return cmd
}
