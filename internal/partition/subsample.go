package partition

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/signalnine/autotune/internal/dataset"
	"github.com/signalnine/autotune/internal/errs"
)

const defaultPercent = 70

// Sampling parameterises one stratified resample of a dataset.
type Sampling struct {
	Seed    int64
	Percent float64
	// Bias moves per-class targets from the class proportions (0) towards a
	// uniform class distribution (1).
	Bias float64
	// Replacement draws with replacement; the default draws without.
	Replacement bool
	// Invert selects the rows that were not drawn.
	Invert bool
}

func (s Sampling) validate() error {
	if math.IsNaN(s.Percent) || s.Percent <= 0 {
		return errs.NewInvalidParameter("percent", "must be positive", s.Percent)
	}
	if math.IsNaN(s.Bias) || s.Bias < 0 || s.Bias > 1 {
		return errs.NewInvalidParameter("bias", "must be in [0, 1]", s.Bias)
	}
	return nil
}

// ClampWarning reports a class whose without-replacement target exceeded
// the rows available for it.
type ClampWarning struct {
	Class     string
	Requested int
	Available int
}

func (w ClampWarning) String() string {
	return fmt.Sprintf("class %q: requested %d instances, only %d available", w.Class, w.Requested, w.Available)
}

// Resample draws a stratified subsample of ds. Rows are returned in their
// original dataset order. A dataset without a class is one stratum.
func Resample(ds *dataset.Dataset, s Sampling) (*dataset.Dataset, []ClampWarning, error) {
	if err := s.validate(); err != nil {
		return nil, nil, err
	}
	groups := ds.IndicesByClass()
	classes := make([]string, 0, len(groups))
	for c := range groups {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	total := float64(ds.Len())
	uniform := 0.0
	if len(classes) > 0 {
		uniform = total / float64(len(classes))
	}

	r := newRand(s.Seed)
	var warnings []ClampWarning
	var picked []int
	for _, class := range classes {
		rows := groups[class]
		base := (1-s.Bias)*float64(len(rows)) + s.Bias*uniform
		target := int(math.Floor(s.Percent*base/100 + 1e-9))

		if s.Replacement {
			drawn := make([]int, target)
			for i := range drawn {
				drawn[i] = rows[r.IntN(len(rows))]
			}
			if s.Invert {
				picked = append(picked, outOfBag(rows, drawn)...)
			} else {
				picked = append(picked, drawn...)
			}
			continue
		}

		if target > len(rows) {
			warnings = append(warnings, ClampWarning{Class: class, Requested: target, Available: len(rows)})
			target = len(rows)
		}
		shuffled := append([]int(nil), rows...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if s.Invert {
			picked = append(picked, shuffled[target:]...)
		} else {
			picked = append(picked, shuffled[:target]...)
		}
	}
	sort.Ints(picked)
	return ds.Subset(picked), warnings, nil
}

func outOfBag(rows, drawn []int) []int {
	in := make(map[int]bool, len(drawn))
	for _, i := range drawn {
		in[i] = true
	}
	var out []int
	for _, i := range rows {
		if !in[i] {
			out = append(out, i)
		}
	}
	return out
}

// resample runs Resample and reports clamp warnings through the source logger.
func resample(src Source, ds *dataset.Dataset, s Sampling) (*dataset.Dataset, error) {
	out, warnings, err := Resample(ds, s)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		src.Log.Warn().
			Str("class", w.Class).
			Int("requested", w.Requested).
			Int("available", w.Available).
			Int64("seed", s.Seed).
			Msg("subsample target clamped to class size")
	}
	return out, nil
}

// Subsample trains on a stratified random sample of the training data and
// tests on the rows left out.
type Subsample struct {
	Sampling
}

func (Subsample) Kind() Kind { return KindSubsample }
func (Subsample) sealed()    {}

func (s Subsample) ID() string {
	p := Props{
		"seed":    strconv.FormatInt(s.Seed, 10),
		"percent": formatFloat(s.Percent),
		"bias":    formatFloat(s.Bias),
	}
	if s.Replacement {
		p["noReplacement"] = "false"
	}
	if s.Invert {
		p["invert"] = "true"
	}
	return p.Format("seed", "percent", "bias")
}

func (s Subsample) Training(src Source) (*dataset.Dataset, error) {
	return resample(src, src.Train, s.Sampling)
}

func (s Subsample) Test(src Source) (*dataset.Dataset, error) {
	inv := s.Sampling
	inv.Invert = !inv.Invert
	return resample(src, src.Train, inv)
}

// parseSampling reads a sampling from p using the given key names.
func parseSampling(p Props, seedKey, percentKey, biasKey string, defPercent float64) (Sampling, error) {
	var s Sampling
	var err error
	if s.Seed, err = p.Seed(seedKey, 0); err != nil {
		return s, err
	}
	if s.Percent, err = p.Float(percentKey, defPercent); err != nil {
		return s, err
	}
	if s.Bias, err = p.Float(biasKey, 0); err != nil {
		return s, err
	}
	return s, s.validate()
}

type subsampleGenerator struct{}

func (subsampleGenerator) Parse(id string) (Spec, error) {
	p, err := ParseProps(id)
	if err != nil {
		return nil, err
	}
	if _, ok := p["bias"]; !ok {
		if legacy, ok := p["base"]; ok {
			p["bias"] = legacy
		}
	}
	s, err := parseSampling(p, "seed", "percent", "bias", defaultPercent)
	if err != nil {
		return nil, err
	}
	noReplacement, err := p.Bool("noReplacement", true)
	if err != nil {
		return nil, err
	}
	s.Replacement = !noReplacement
	if s.Invert, err = p.Bool("invert", false); err != nil {
		return nil, err
	}
	return Subsample{Sampling: s}, nil
}

func (subsampleGenerator) Enumerate(args string) ([]string, error) {
	p, err := ParseProps(args)
	if err != nil {
		return nil, err
	}
	start, err := p.Seed("startingSeed", 0)
	if err != nil {
		return nil, err
	}
	n, err := p.Int("numSamples", -1)
	if err != nil {
		return nil, err
	}
	percent, err := p.Float("percent", -1)
	if err != nil {
		return nil, err
	}
	bias, err := p.Float("bias", 0)
	if err != nil {
		return nil, err
	}
	switch {
	case n <= 0:
		return nil, errs.NewInvalidParameter("numSamples", "must be greater than 0", n)
	case percent <= 0 || percent >= 100:
		return nil, errs.NewInvalidParameter("percent", "must be in (0, 100)", percent)
	case bias < 0 || bias > 1:
		return nil, errs.NewInvalidParameter("bias", "must be in [0, 1]", bias)
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = Subsample{Sampling{Seed: start + int64(i), Percent: percent, Bias: bias}}.ID()
	}
	return ids, nil
}

func (g subsampleGenerator) Features(args string, src Source) (map[string]map[string]string, error) {
	return flatFeatures(g, args, src)
}
