package partition

import (
	"strconv"

	"github.com/signalnine/autotune/internal/dataset"
	"github.com/signalnine/autotune/internal/errs"
)

// MultiLevelChain shrinks the training data Level times by the same
// stratified subsample and hands the result to a child partition. Higher
// levels therefore evaluate on less data.
type MultiLevelChain struct {
	Sampling
	Level     int
	ChildKind Kind
	Child     Spec
}

func (MultiLevelChain) Kind() Kind { return KindMultiLevel }
func (MultiLevelChain) sealed()    {}

func (m MultiLevelChain) current() Props {
	return Props{
		"levelSeed":    strconv.FormatInt(m.Seed, 10),
		"levelPercent": formatFloat(m.Percent),
		"levelBias":    formatFloat(m.Bias),
		"level":        strconv.Itoa(m.Level),
	}
}

func (m MultiLevelChain) ID() string {
	return Nested{
		Current:   m.current().Format("levelSeed", "levelPercent", "levelBias", "level"),
		ChildKind: string(m.ChildKind),
		Child:     m.Child.ID(),
	}.String()
}

// childSource returns the data the child partition is applied to.
func (m MultiLevelChain) childSource(src Source) (Source, error) {
	s := m.Sampling
	ds := src.Train
	for i := 0; i < m.Level; i++ {
		next, err := resample(src, ds, s)
		if err != nil {
			return Source{}, err
		}
		ds = next
	}
	train, err := resample(src, ds, s)
	if err != nil {
		return Source{}, err
	}
	s.Invert = true
	test, err := resample(src, ds, s)
	if err != nil {
		return Source{}, err
	}
	return src.with(train, test), nil
}

func (m MultiLevelChain) Training(src Source) (*dataset.Dataset, error) {
	child, err := m.childSource(src)
	if err != nil {
		return nil, err
	}
	return m.Child.Training(child)
}

func (m MultiLevelChain) Test(src Source) (*dataset.Dataset, error) {
	child, err := m.childSource(src)
	if err != nil {
		return nil, err
	}
	return m.Child.Test(child)
}

type multiLevelGenerator struct{}

func parseLevelSampling(p Props) (Sampling, error) {
	return parseSampling(p, "levelSeed", "levelPercent", "levelBias", defaultPercent)
}

func (multiLevelGenerator) Parse(id string) (Spec, error) {
	n, err := SplitNested(id)
	if err != nil {
		return nil, err
	}
	p, err := ParseProps(n.Current)
	if err != nil {
		return nil, err
	}
	s, err := parseLevelSampling(p)
	if err != nil {
		return nil, err
	}
	level, err := p.Int("level", -1)
	if err != nil {
		return nil, err
	}
	if level < 0 {
		return nil, errs.NewInvalidParameter("level", "must be 0 or greater", level)
	}
	kind, err := NormalizeKind(n.ChildKind)
	if err != nil {
		return nil, err
	}
	child, err := Parse(string(kind), n.Child)
	if err != nil {
		return nil, err
	}
	return MultiLevelChain{Sampling: s, Level: level, ChildKind: kind, Child: child}, nil
}

// levels decodes the experiment arguments into one template per level,
// highest level first.
func (multiLevelGenerator) levels(args string) ([]MultiLevelChain, Generator, string, error) {
	n, err := SplitNested(args)
	if err != nil {
		return nil, nil, "", err
	}
	p, err := ParseProps(n.Current)
	if err != nil {
		return nil, nil, "", err
	}
	s, err := parseLevelSampling(p)
	if err != nil {
		return nil, nil, "", err
	}
	numLevels, err := p.Int("numLevels", -1)
	if err != nil {
		return nil, nil, "", err
	}
	if numLevels <= 0 {
		return nil, nil, "", errs.NewInvalidParameter("numLevels", "must be greater than 0", numLevels)
	}
	kind, err := NormalizeKind(n.ChildKind)
	if err != nil {
		return nil, nil, "", err
	}
	out := make([]MultiLevelChain, 0, numLevels)
	for level := numLevels - 1; level >= 0; level-- {
		out = append(out, MultiLevelChain{Sampling: s, Level: level, ChildKind: kind})
	}
	return out, registry[kind](), n.Child, nil
}

func (g multiLevelGenerator) Enumerate(args string) ([]string, error) {
	levels, child, childArgs, err := g.levels(args)
	if err != nil {
		return nil, err
	}
	childIDs, err := child.Enumerate(childArgs)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range levels {
		current := m.current().Format("levelSeed", "levelPercent", "levelBias", "level")
		for _, cid := range childIDs {
			ids = append(ids, Nested{Current: current, ChildKind: string(m.ChildKind), Child: cid}.String())
		}
	}
	return ids, nil
}

func (g multiLevelGenerator) Features(args string, src Source) (map[string]map[string]string, error) {
	levels, child, childArgs, err := g.levels(args)
	if err != nil {
		return nil, err
	}
	feats := make(map[string]map[string]string)
	for _, m := range levels {
		csrc, err := m.childSource(src)
		if err != nil {
			return nil, err
		}
		childFeats, err := child.Features(childArgs, csrc)
		if err != nil {
			return nil, err
		}
		current := m.current().Format("levelSeed", "levelPercent", "levelBias", "level")
		for cid, f := range childFeats {
			f["level"] = strconv.Itoa(m.Level)
			feats[Nested{Current: current, ChildKind: string(m.ChildKind), Child: cid}.String()] = f
		}
	}
	return feats, nil
}
