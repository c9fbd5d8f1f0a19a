package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/autotune/internal/config"
	"github.com/signalnine/autotune/internal/report"
	"github.com/signalnine/autotune/internal/result"
)

var (
	flagFormat string
	flagTop    int
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <experiment.yaml>",
		Short: "Summarise stored configuration results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			return report.Generate(result.NewStore(cfg.Dir), cfg.Name, flagFormat, flagTop, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	cmd.Flags().IntVar(&flagTop, "top", 0, "show only the best N configurations")
	return cmd
}
