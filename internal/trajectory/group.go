package trajectory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/signalnine/autotune/internal/errs"
)

const groupSuffix = ".trajectories"

// Group holds the trajectories of every seed of one experiment.
type Group struct {
	Experiment   string        `json:"experiment"`
	Trajectories []*Trajectory `json:"trajectories"`
}

// GroupPath is where a group file lives. An empty seed names the merged
// file.
func GroupPath(dir, name, seed string) string {
	p := filepath.Join(dir, name+groupSuffix)
	if seed != "" {
		p += "." + seed
	}
	return p
}

// Add stores t, replacing any trajectory with the same seed.
func (g *Group) Add(t *Trajectory) {
	for i, cur := range g.Trajectories {
		if cur.Seed == t.Seed {
			g.Trajectories[i] = t
			return
		}
	}
	g.Trajectories = append(g.Trajectories, t)
	sort.Slice(g.Trajectories, func(i, j int) bool { return g.Trajectories[i].Seed < g.Trajectories[j].Seed })
}

// Get returns the trajectory of seed.
func (g *Group) Get(seed string) (*Trajectory, bool) {
	for _, t := range g.Trajectories {
		if t.Seed == seed {
			return t, true
		}
	}
	return nil, false
}

// Save writes the group as JSON.
func (g *Group) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return errs.Wrap(err, "encode trajectory group")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return errs.NewIOError("write trajectory group", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.NewIOError("rename trajectory group", path, err)
	}
	return nil
}

// LoadGroup reads a group file.
func LoadGroup(path string) (*Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewIOError("read trajectory group", path, err)
	}
	var g Group
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, errs.NewParseError(path, 0, "", err.Error())
	}
	return &g, nil
}

// MergeGroups collects every per-seed file `<name>.trajectories.<seed>`
// in dir into one group, taking from each file the trajectory of its seed.
func MergeGroups(dir, name string) (*Group, error) {
	matches, err := filepath.Glob(filepath.Join(dir, name+groupSuffix+".*"))
	if err != nil {
		return nil, errs.Wrap(err, "list trajectory groups")
	}
	sort.Strings(matches)
	merged := &Group{Experiment: name}
	prefix := name + groupSuffix + "."
	for _, path := range matches {
		seed := strings.TrimPrefix(filepath.Base(path), prefix)
		if strings.HasSuffix(seed, ".tmp") {
			continue
		}
		g, err := LoadGroup(path)
		if err != nil {
			return nil, err
		}
		t, ok := g.Get(seed)
		if !ok {
			return nil, errs.NewParseError(path, 0, seed, "group has no trajectory for its seed")
		}
		merged.Add(t)
	}
	if len(merged.Trajectories) == 0 {
		return nil, errs.NewIOError("merge trajectory groups", GroupPath(dir, name, "*"), os.ErrNotExist)
	}
	return merged, nil
}
