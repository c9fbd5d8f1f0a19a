package result

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"

	"gonum.org/v1/gonum/stat"

	"github.com/signalnine/autotune/internal/errs"
)

// PartitionResult is the outcome of evaluating a configuration on one partition.
type PartitionResult struct {
	Partition string  `json:"partition"`
	Score     float64 `json:"score"`
	Time      float64 `json:"time"`
	MemOut    bool    `json:"mem_out,omitempty"`
	Completed bool    `json:"completed"`
}

// Configuration is one point of the search space together with the
// partition results gathered for it. The argument string and its hash are
// fixed at construction.
type Configuration struct {
	args     string
	hash     string
	results  []PartitionResult
	complete bool

	Worker string
	Seed   string
}

// Hash returns the lowercase hex SHA-1 of an argument string. Leading zeros
// are kept, so every hash is 40 characters long.
func Hash(argString string) string {
	sum := sha1.Sum([]byte(argString))
	return hex.EncodeToString(sum[:])
}

// NewConfiguration starts an empty, complete record for argString.
func NewConfiguration(argString string) *Configuration {
	return &Configuration{args: argString, hash: Hash(argString), complete: true}
}

func (c *Configuration) Args() string { return c.args }
func (c *Configuration) Hash() string { return c.hash }

// Complete is false when evaluation was abandoned before every partition ran.
func (c *Configuration) Complete() bool { return c.complete }

// MarkIncomplete records that the remaining partitions were skipped.
func (c *Configuration) MarkIncomplete() { c.complete = false }

// Results returns a copy of the per-partition results in evaluation order.
func (c *Configuration) Results() []PartitionResult {
	return append([]PartitionResult(nil), c.results...)
}

// Add appends the result for one partition.
func (c *Configuration) Add(r PartitionResult) {
	c.results = append(c.results, r)
}

// NumPartitions returns how many partition results the record holds.
func (c *Configuration) NumPartitions() int { return len(c.results) }

// Mean is the mean score over all partition results, 0 when there are none.
func (c *Configuration) Mean() float64 {
	if len(c.results) == 0 {
		return 0
	}
	scores := make([]float64, len(c.results))
	for i, r := range c.results {
		scores[i] = r.Score
	}
	return stat.Mean(scores, nil)
}

// TotalTime sums the evaluation time spent on the record.
func (c *Configuration) TotalTime() float64 {
	var total float64
	for _, r := range c.results {
		total += r.Time
	}
	return total
}

// Merge folds other's partition results into c. Both records must describe
// the same argument string.
func (c *Configuration) Merge(other *Configuration) error {
	if other.args != c.args {
		return errs.NewMergeConflict(c.args, other.args)
	}
	c.results = append(c.results, other.results...)
	c.complete = c.complete && other.complete
	return nil
}

type configurationJSON struct {
	Args     string            `json:"args"`
	Hash     string            `json:"hash"`
	Mean     float64           `json:"mean"`
	Complete bool              `json:"complete"`
	Worker   string            `json:"worker,omitempty"`
	Seed     string            `json:"seed,omitempty"`
	Results  []PartitionResult `json:"results"`
}

func (c *Configuration) MarshalJSON() ([]byte, error) {
	results := c.results
	if results == nil {
		results = []PartitionResult{}
	}
	return json.Marshal(configurationJSON{
		Args:     c.args,
		Hash:     c.hash,
		Mean:     c.Mean(),
		Complete: c.complete,
		Worker:   c.Worker,
		Seed:     c.Seed,
		Results:  results,
	})
}

// UnmarshalJSON recomputes the hash and rejects a record whose stored hash
// does not match its argument string.
func (c *Configuration) UnmarshalJSON(data []byte) error {
	var raw configurationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errs.NewParseError("configuration", 0, "", err.Error())
	}
	hash := Hash(raw.Args)
	if raw.Hash != "" && raw.Hash != hash {
		return errs.NewParseError("configuration", 0, raw.Hash, "hash does not match args")
	}
	*c = Configuration{
		args:     raw.Args,
		hash:     hash,
		results:  raw.Results,
		complete: raw.Complete,
		Worker:   raw.Worker,
		Seed:     raw.Seed,
	}
	return nil
}
