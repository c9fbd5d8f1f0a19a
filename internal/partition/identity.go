package partition

import (
	"github.com/signalnine/autotune/internal/dataset"
	"github.com/signalnine/autotune/internal/errs"
)

// Identity returns the raw training and test data unchanged.
type Identity struct{}

func (Identity) Kind() Kind { return KindIdentity }
func (Identity) ID() string { return DefaultID }
func (Identity) sealed()    {}

func (Identity) Training(src Source) (*dataset.Dataset, error) {
	if src.Train == nil {
		return nil, errs.NewInvalidParameter("training", "no training data", nil)
	}
	return src.Train.Copy(), nil
}

func (Identity) Test(src Source) (*dataset.Dataset, error) {
	if src.Test == nil {
		return nil, errs.NewInvalidParameter("test", "no test data", nil)
	}
	return src.Test.Copy(), nil
}

type identityGenerator struct{}

func (identityGenerator) Parse(id string) (Spec, error) {
	if id == "" || id == DefaultID {
		return Identity{}, nil
	}
	return nil, errs.NewInvalidParameter("partition", "identity only accepts the default partition", id)
}

func (identityGenerator) Enumerate(string) ([]string, error) {
	return []string{DefaultID}, nil
}

func (identityGenerator) Features(_ string, src Source) (map[string]map[string]string, error) {
	return map[string]map[string]string{DefaultID: summarize(src.Train)}, nil
}
