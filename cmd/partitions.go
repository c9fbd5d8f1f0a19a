package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/autotune/internal/config"
	"github.com/signalnine/autotune/internal/partition"
)

var flagFeatures bool

func newPartitionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partitions <experiment.yaml>",
		Short: "List the partition IDs every configuration is evaluated on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			ids, err := cfg.PartitionIDs()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !flagFeatures {
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			log, err := newLogger("partitions")
			if err != nil {
				return err
			}
			src, err := loadSource(cfg, log)
			if err != nil {
				return err
			}
			feats, err := partition.Features(cfg.Partitions.Kind, cfg.Partitions.Args, src)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintf(out, "%s\t%s\n", id, formatFeatures(feats[id]))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagFeatures, "features", false, "print the numeric features of each partition")
	return cmd
}

func formatFeatures(f map[string]string) string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + f[k]
	}
	return strings.Join(parts, " ")
}
