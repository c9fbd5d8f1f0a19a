package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/autotune/internal/config"
	"github.com/signalnine/autotune/internal/rank"
	"github.com/signalnine/autotune/internal/report"
	"github.com/signalnine/autotune/internal/result"
)

var (
	flagRankN      int
	flagIncumbent  string
	flagRankFormat string
)

func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank <experiment.yaml>",
		Short: "Merge per-worker records and list the best configurations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			records, err := result.NewStore(cfg.Dir).LoadAll()
			if err != nil {
				return err
			}
			configs, err := rank.Collect(records)
			if err != nil {
				return err
			}
			rank.Sort(configs)
			if flagIncumbent != "" {
				if err := rank.ForceFirst(configs, flagIncumbent); err != nil {
					return err
				}
			}
			if flagRankN > 0 && flagRankN < len(configs) {
				configs = configs[:flagRankN]
			}
			return report.WriteRows(report.Rows(configs), flagRankFormat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&flagRankN, "num", "n", 10, "number of configurations to list (0 for all)")
	cmd.Flags().StringVar(&flagIncumbent, "incumbent", "", "argument string of the optimizer's final incumbent, listed first")
	cmd.Flags().StringVar(&flagRankFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}
