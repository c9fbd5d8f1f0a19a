package result

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/signalnine/autotune/internal/errs"
)

// Extension of persisted configuration records.
const Extension = ".result"

// Store is the sharded tree of configuration records that workers of one
// experiment share:
//
//	<experimentDir>/points/<hash[0:2]>/<hash[2:]>.result
//
// An empty file is a claim placed by a worker that is still evaluating.
type Store struct {
	Dir string
}

// NewStore returns the store rooted at the experiment directory.
func NewStore(experimentDir string) *Store {
	return &Store{Dir: filepath.Join(experimentDir, "points")}
}

// Path returns the record path for a hash.
func (s *Store) Path(hash string) string {
	if len(hash) < 3 {
		return filepath.Join(s.Dir, hash+Extension)
	}
	return filepath.Join(s.Dir, hash[:2], hash[2:]+Extension)
}

// Exists reports whether a record or claim is present for hash.
func (s *Store) Exists(hash string) bool {
	_, err := os.Stat(s.Path(hash))
	return err == nil
}

// Claim creates the empty claim file for hash. It returns false when another
// worker already claimed or finished the point.
func (s *Store) Claim(hash string) (bool, error) {
	path := s.Path(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errs.NewIOError("create shard", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errs.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, errs.NewIOError("claim", path, err)
	}
	if err := f.Close(); err != nil {
		return false, errs.NewIOError("claim", path, err)
	}
	return true, nil
}

// Release removes an unsaved claim so the point can be sampled again. A
// saved record is left in place.
func (s *Store) Release(hash string) error {
	path := s.Path(hash)
	info, err := os.Stat(path)
	if errs.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errs.NewIOError("release", path, err)
	}
	if info.Size() > 0 {
		return nil
	}
	if err := os.Remove(path); err != nil && !errs.Is(err, fs.ErrNotExist) {
		return errs.NewIOError("release", path, err)
	}
	return nil
}

// Save writes the record through a temporary file and renames it over the
// claim, so readers never see a partial record.
func (s *Store) Save(c *Configuration) error {
	path := s.Path(c.Hash())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.NewIOError("create shard", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errs.Wrap(err, "marshaling configuration")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errs.NewIOError("create temp", filepath.Dir(path), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errs.NewIOError("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errs.NewIOError("close", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errs.NewIOError("rename", path, err)
	}
	return nil
}

// ReadConfiguration reads one record file.
func ReadConfiguration(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewIOError("read", path, err)
	}
	var c Configuration
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errs.Wrapf(err, "parsing %s", path)
	}
	return &c, nil
}

// Load reads the record for hash.
func (s *Store) Load(hash string) (*Configuration, error) {
	return ReadConfiguration(s.Path(hash))
}

// LoadAll reads every finished record, sorted by hash. Claims that have not
// been written yet are skipped.
func (s *Store) LoadAll() ([]*Configuration, error) {
	var out []*Configuration
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errs.Is(err, fs.ErrNotExist) && path == s.Dir {
				return filepath.SkipDir
			}
			return errs.NewIOError("walk", path, err)
		}
		if d.IsDir() || !strings.HasSuffix(path, Extension) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return errs.NewIOError("stat", path, err)
		}
		if info.Size() == 0 {
			return nil
		}
		c, err := ReadConfiguration(path)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash() < out[j].Hash() })
	return out, nil
}
