package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/signalnine/autotune/internal/logging"
)

var (
	flagLogLevel  string
	flagLogPretty bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "autotune",
		Short:         "Distributed hyperparameter search over partitioned datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flagLogPretty, "log-pretty", false, "human readable console logs")
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newPartitionsCmd())
	root.AddCommand(newSplitCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newTrajectoryCmd())
	root.AddCommand(newRankCmd())
	root.AddCommand(newReportCmd())
	return root
}

func newLogger(name string) (zerolog.Logger, error) {
	log, err := logging.New(os.Stderr, flagLogLevel, flagLogPretty)
	if err != nil {
		return zerolog.Nop(), err
	}
	return logging.Component(log, name), nil
}
