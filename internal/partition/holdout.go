package partition

import (
	"strconv"

	"github.com/signalnine/autotune/internal/dataset"
)

const defaultTerminationPercent = 30

// TerminationHoldout reserves a stratified Percent of the training data.
// The reserved rows are what the child partition trains and tunes on; the
// remainder is the child's evaluation source.
type TerminationHoldout struct {
	Sampling
	ChildKind Kind
	Child     Spec
}

func (TerminationHoldout) Kind() Kind { return KindTerminationHoldout }
func (TerminationHoldout) sealed()    {}

func (h TerminationHoldout) current() string {
	return Props{
		"terminationSeed":    strconv.FormatInt(h.Seed, 10),
		"terminationPercent": formatFloat(h.Percent),
		"terminationBias":    formatFloat(h.Bias),
	}.Format("terminationSeed", "terminationPercent", "terminationBias")
}

func (h TerminationHoldout) ID() string {
	return Nested{Current: h.current(), ChildKind: string(h.ChildKind), Child: h.Child.ID()}.String()
}

func (h TerminationHoldout) childSource(src Source) (Source, error) {
	s := h.Sampling
	reserved, err := resample(src, src.Train, s)
	if err != nil {
		return Source{}, err
	}
	s.Invert = true
	rest, err := resample(src, src.Train, s)
	if err != nil {
		return Source{}, err
	}
	return src.with(reserved, rest), nil
}

func (h TerminationHoldout) Training(src Source) (*dataset.Dataset, error) {
	child, err := h.childSource(src)
	if err != nil {
		return nil, err
	}
	return h.Child.Training(child)
}

func (h TerminationHoldout) Test(src Source) (*dataset.Dataset, error) {
	child, err := h.childSource(src)
	if err != nil {
		return nil, err
	}
	return h.Child.Test(child)
}

type holdoutGenerator struct{}

func parseHoldout(args string) (TerminationHoldout, Nested, error) {
	n, err := SplitNested(args)
	if err != nil {
		return TerminationHoldout{}, n, err
	}
	p, err := ParseProps(n.Current)
	if err != nil {
		return TerminationHoldout{}, n, err
	}
	s, err := parseSampling(p, "terminationSeed", "terminationPercent", "terminationBias", defaultTerminationPercent)
	if err != nil {
		return TerminationHoldout{}, n, err
	}
	kind, err := NormalizeKind(n.ChildKind)
	if err != nil {
		return TerminationHoldout{}, n, err
	}
	return TerminationHoldout{Sampling: s, ChildKind: kind}, n, nil
}

func (holdoutGenerator) Parse(id string) (Spec, error) {
	h, n, err := parseHoldout(id)
	if err != nil {
		return nil, err
	}
	if h.Child, err = Parse(string(h.ChildKind), n.Child); err != nil {
		return nil, err
	}
	return h, nil
}

func (holdoutGenerator) Enumerate(args string) ([]string, error) {
	h, n, err := parseHoldout(args)
	if err != nil {
		return nil, err
	}
	childIDs, err := registry[h.ChildKind]().Enumerate(n.Child)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(childIDs))
	for i, cid := range childIDs {
		ids[i] = Nested{Current: h.current(), ChildKind: string(h.ChildKind), Child: cid}.String()
	}
	return ids, nil
}

func (holdoutGenerator) Features(args string, src Source) (map[string]map[string]string, error) {
	h, n, err := parseHoldout(args)
	if err != nil {
		return nil, err
	}
	csrc, err := h.childSource(src)
	if err != nil {
		return nil, err
	}
	childFeats, err := registry[h.ChildKind]().Features(n.Child, csrc)
	if err != nil {
		return nil, err
	}
	feats := make(map[string]map[string]string, len(childFeats))
	for cid, f := range childFeats {
		feats[Nested{Current: h.current(), ChildKind: string(h.ChildKind), Child: cid}.String()] = f
	}
	return feats, nil
}
