package partition

import (
	"strconv"

	"github.com/signalnine/autotune/internal/dataset"
	"github.com/signalnine/autotune/internal/errs"
)

const defaultNumFolds = 10

// CrossValidationFold selects fold Fold of a NumFolds-way split of the
// training data after shuffling it with Seed.
type CrossValidationFold struct {
	Seed     int64
	NumFolds int
	Fold     int
}

func (CrossValidationFold) Kind() Kind { return KindCrossValidation }
func (CrossValidationFold) sealed()    {}

func (c CrossValidationFold) ID() string {
	return Props{
		"seed":     strconv.FormatInt(c.Seed, 10),
		"numFolds": strconv.Itoa(c.NumFolds),
		"fold":     strconv.Itoa(c.Fold),
	}.Format("seed", "numFolds", "fold")
}

func (c CrossValidationFold) validate(n int) error {
	if c.NumFolds < 2 {
		return errs.NewInvalidParameter("numFolds", "must be greater than 1", c.NumFolds)
	}
	if c.Fold < 0 || c.Fold >= c.NumFolds {
		return errs.NewInvalidParameter("fold", "must be in [0, numFolds)", c.Fold)
	}
	if n >= 0 && c.NumFolds > n {
		return errs.NewInvalidParameter("numFolds", "more folds than instances", c.NumFolds)
	}
	return nil
}

// bounds returns the half-open range of the test fold within the
// shuffled order. The first n%numFolds folds hold one extra instance.
func (c CrossValidationFold) bounds(n int) (first, last int) {
	size := n / c.NumFolds
	extra := n % c.NumFolds
	offset := extra
	if c.Fold < extra {
		size++
		offset = c.Fold
	}
	first = c.Fold*(n/c.NumFolds) + offset
	return first, first + size
}

func (c CrossValidationFold) order(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	r := newRand(c.Seed)
	r.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx
}

func (c CrossValidationFold) Training(src Source) (*dataset.Dataset, error) {
	n := src.Train.Len()
	if err := c.validate(n); err != nil {
		return nil, err
	}
	order := c.order(n)
	first, last := c.bounds(n)
	idx := make([]int, 0, n-(last-first))
	idx = append(idx, order[:first]...)
	idx = append(idx, order[last:]...)
	return src.Train.Subset(idx), nil
}

func (c CrossValidationFold) Test(src Source) (*dataset.Dataset, error) {
	n := src.Train.Len()
	if err := c.validate(n); err != nil {
		return nil, err
	}
	first, last := c.bounds(n)
	return src.Train.Subset(c.order(n)[first:last]), nil
}

type crossValidationGenerator struct{}

func (crossValidationGenerator) Parse(id string) (Spec, error) {
	p, err := ParseProps(id)
	if err != nil {
		return nil, err
	}
	var c CrossValidationFold
	if c.Seed, err = p.Seed("seed", 0); err != nil {
		return nil, err
	}
	if c.NumFolds, err = p.Int("numFolds", defaultNumFolds); err != nil {
		return nil, err
	}
	if c.Fold, err = p.Int("fold", -1); err != nil {
		return nil, err
	}
	if err := c.validate(-1); err != nil {
		return nil, err
	}
	return c, nil
}

func (crossValidationGenerator) Enumerate(args string) ([]string, error) {
	p, err := ParseProps(args)
	if err != nil {
		return nil, err
	}
	seed, err := p.Seed("seed", 0)
	if err != nil {
		return nil, err
	}
	folds, err := p.Int("numFolds", defaultNumFolds)
	if err != nil {
		return nil, err
	}
	if folds < 2 {
		return nil, errs.NewInvalidParameter("numFolds", "must be greater than 1", folds)
	}
	ids := make([]string, folds)
	for i := range ids {
		ids[i] = CrossValidationFold{Seed: seed, NumFolds: folds, Fold: i}.ID()
	}
	return ids, nil
}

func (g crossValidationGenerator) Features(args string, src Source) (map[string]map[string]string, error) {
	return flatFeatures(g, args, src)
}
