package cmd

import (
	"github.com/rs/zerolog"

	"github.com/signalnine/autotune/internal/config"
	"github.com/signalnine/autotune/internal/dataset"
	"github.com/signalnine/autotune/internal/partition"
)

// loadSource reads the experiment's training (and optional test) data.
func loadSource(cfg *config.Config, log zerolog.Logger) (partition.Source, error) {
	train, err := dataset.LoadCSV(cfg.Dataset.Path, cfg.Dataset.ClassColumn)
	if err != nil {
		return partition.Source{}, err
	}
	var test *dataset.Dataset
	if cfg.Dataset.TestPath != "" {
		if test, err = dataset.LoadCSV(cfg.Dataset.TestPath, cfg.Dataset.ClassColumn); err != nil {
			return partition.Source{}, err
		}
	}
	return partition.NewSource(train, test, log), nil
}
