// Package partition deterministically cuts a dataset into training and
// test slices for each evaluation.
//
// A partition is named by a partition ID, a property string such as
// "seed=3:numFolds=10:fold=2". The ID is parsed into a Spec, a closed set
// of variants (Identity, CrossValidationFold, Subsample, MultiLevelChain,
// TerminationHoldout). The wrapping variants carry a nested child Spec and
// the kind of generator that produced it, so partitions compose
// recursively:
//
//	levelSeed=0:levelPercent=50:levelBias=0:level=1[$]crossvalidation[$]seed=0:numFolds=5:fold=3
//
// A Generator turns the experiment-level arguments for a kind into the
// ordered list of partition IDs that every configuration is evaluated on.
// Generators are looked up in a fixed registry keyed by kind name.
package partition

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/signalnine/autotune/internal/dataset"
	"github.com/signalnine/autotune/internal/errs"
)

// Kind names a partition generator.
type Kind string

const (
	KindIdentity           Kind = "identity"
	KindCrossValidation    Kind = "crossvalidation"
	KindSubsample          Kind = "subsample"
	KindMultiLevel         Kind = "multilevel"
	KindTerminationHoldout Kind = "terminationholdout"
)

// DefaultID is the partition ID that always selects the raw training and
// test data, whatever the generator kind.
const DefaultID = "default"

// Source is the data a Spec is applied to. Generators draw both training
// and test slices from Train; Test is only returned by Identity.
type Source struct {
	Train *dataset.Dataset
	Test  *dataset.Dataset
	Log   zerolog.Logger
}

// NewSource builds a Source. A nil test set falls back to the training set.
func NewSource(train, test *dataset.Dataset, log zerolog.Logger) Source {
	if test == nil {
		test = train
	}
	return Source{Train: train, Test: test, Log: log}
}

func (s Source) with(train, test *dataset.Dataset) Source {
	return Source{Train: train, Test: test, Log: s.Log}
}

// Spec is an immutable, fully parsed partition descriptor.
type Spec interface {
	Kind() Kind
	// ID renders the spec back into its partition ID.
	ID() string
	Training(src Source) (*dataset.Dataset, error)
	Test(src Source) (*dataset.Dataset, error)

	sealed()
}

// Generator is the per-kind factory behind the registry.
type Generator interface {
	// Parse decodes one partition ID produced by Enumerate.
	Parse(id string) (Spec, error)
	// Enumerate expands experiment-level arguments into partition IDs, in
	// the order they must be evaluated.
	Enumerate(args string) ([]string, error)
	// Features returns optional numeric summaries per partition ID.
	Features(args string, src Source) (map[string]map[string]string, error)
}

var registry = map[Kind]func() Generator{
	KindIdentity:           func() Generator { return identityGenerator{} },
	KindCrossValidation:    func() Generator { return crossValidationGenerator{} },
	KindSubsample:          func() Generator { return subsampleGenerator{} },
	KindMultiLevel:         func() Generator { return multiLevelGenerator{} },
	KindTerminationHoldout: func() Generator { return holdoutGenerator{} },
}

var aliases = map[string]Kind{
	"default":           KindIdentity,
	"none":              KindIdentity,
	"cv":                KindCrossValidation,
	"randomsubsampling": KindSubsample,
	"resample":          KindSubsample,
	"holdout":           KindTerminationHoldout,
}

// NormalizeKind maps a user supplied generator name onto a registered
// kind. Qualified names ("pkg.instancegenerators.CrossValidation") resolve
// by their last segment, case-insensitively.
func NormalizeKind(name string) (Kind, error) {
	n := strings.TrimSpace(name)
	if i := strings.LastIndexByte(n, '.'); i >= 0 {
		n = n[i+1:]
	}
	n = strings.ToLower(n)
	if n == "" || n == "null" {
		return KindIdentity, nil
	}
	if k, ok := aliases[n]; ok {
		return k, nil
	}
	if _, ok := registry[Kind(n)]; ok {
		return Kind(n), nil
	}
	return "", errs.NewInvalidParameter("generator", "unknown partition generator", name)
}

// Lookup returns the generator registered for name.
func Lookup(name string) (Generator, error) {
	kind, err := NormalizeKind(name)
	if err != nil {
		return nil, err
	}
	return registry[kind](), nil
}

// Kinds lists the registered generator kinds.
func Kinds() []Kind {
	return []Kind{KindIdentity, KindCrossValidation, KindSubsample, KindMultiLevel, KindTerminationHoldout}
}

// Parse decodes a partition ID for the given generator kind.
func Parse(kind, id string) (Spec, error) {
	if id == DefaultID {
		return Identity{}, nil
	}
	gen, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	spec, err := gen.Parse(id)
	if err != nil {
		return nil, errs.Wrapf(err, "partition %q", id)
	}
	return spec, nil
}

// Enumerate lists every partition ID for a generator kind and its arguments.
func Enumerate(kind, args string) ([]string, error) {
	gen, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	return gen.Enumerate(args)
}

// Features computes the per-partition feature table for a generator kind.
func Features(kind, args string, src Source) (map[string]map[string]string, error) {
	gen, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	return gen.Features(args, src)
}

// Split parses id and returns its training and test slices.
func Split(kind, id string, src Source) (train, test *dataset.Dataset, err error) {
	spec, err := Parse(kind, id)
	if err != nil {
		return nil, nil, err
	}
	if train, err = spec.Training(src); err != nil {
		return nil, nil, err
	}
	if test, err = spec.Test(src); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// flatFeatures summarises the training slice of every enumerated ID.
func flatFeatures(gen Generator, args string, src Source) (map[string]map[string]string, error) {
	ids, err := gen.Enumerate(args)
	if err != nil {
		return nil, err
	}
	feats := make(map[string]map[string]string, len(ids))
	for _, id := range ids {
		spec, err := gen.Parse(id)
		if err != nil {
			return nil, err
		}
		train, err := spec.Training(src)
		if err != nil {
			return nil, err
		}
		feats[id] = summarize(train)
	}
	return feats, nil
}
