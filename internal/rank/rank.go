// Package rank orders evaluated configurations: records evaluated on more
// partitions rank first, and among equals the lower mean score wins.
package rank

import (
	"sort"

	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/result"
)

// Less reports whether a ranks ahead of b.
func Less(a, b *result.Configuration) bool {
	if a.NumPartitions() != b.NumPartitions() {
		return a.NumPartitions() > b.NumPartitions()
	}
	return a.Mean() < b.Mean()
}

// Sort orders configs best first. Ties keep hash order so the ranking is
// stable across runs.
func Sort(configs []*result.Configuration) {
	sort.SliceStable(configs, func(i, j int) bool {
		if Less(configs[i], configs[j]) {
			return true
		}
		if Less(configs[j], configs[i]) {
			return false
		}
		return configs[i].Hash() < configs[j].Hash()
	})
}

// Collect merges records that share an argument string, such as the
// per-worker records of the same point. The inputs are not modified.
func Collect(records []*result.Configuration) ([]*result.Configuration, error) {
	byArgs := make(map[string]*result.Configuration, len(records))
	var order []string
	for _, r := range records {
		merged, ok := byArgs[r.Args()]
		if !ok {
			merged = result.NewConfiguration(r.Args())
			merged.Worker, merged.Seed = r.Worker, r.Seed
			byArgs[r.Args()] = merged
			order = append(order, r.Args())
		}
		if err := merged.Merge(r); err != nil {
			return nil, err
		}
	}
	out := make([]*result.Configuration, 0, len(order))
	for _, args := range order {
		out = append(out, byArgs[args])
	}
	return out, nil
}

// Top sorts configs and keeps the best n. n <= 0 keeps everything.
func Top(configs []*result.Configuration, n int) []*result.Configuration {
	Sort(configs)
	if n > 0 && n < len(configs) {
		return configs[:n]
	}
	return configs
}

// ForceFirst moves the configuration with incumbentArgs to the front of a
// sorted slice. The incumbent must rank level with the current leader.
func ForceFirst(configs []*result.Configuration, incumbentArgs string) error {
	idx := -1
	for i, c := range configs {
		if c.Args() == incumbentArgs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errs.NewInvalidParameter("incumbent", "no evaluated configuration has these arguments", incumbentArgs)
	}
	if idx == 0 {
		return nil
	}
	if Less(configs[0], configs[idx]) {
		return errs.NewInvalidParameter("incumbent", "incumbent ranks behind the best configuration", incumbentArgs)
	}
	inc := configs[idx]
	copy(configs[1:idx+1], configs[:idx])
	configs[0] = inc
	return nil
}
