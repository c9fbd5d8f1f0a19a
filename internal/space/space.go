// Package space describes the hyperparameter space a worker samples from
// and renders sampled points into canonical argument strings.
package space

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/autotune/internal/errs"
)

// Type is the domain of a parameter.
type Type string

const (
	Categorical Type = "categorical"
	Real        Type = "real"
	Integer     Type = "integer"
	LogReal     Type = "logreal"
	LogInteger  Type = "loginteger"
)

var typeAliases = map[string]Type{
	"categorical": Categorical,
	"real":        Real,
	"numeric":     Real,
	"float":       Real,
	"integer":     Integer,
	"int":         Integer,
	"logreal":     LogReal,
	"log_numeric": LogReal,
	"loginteger":  LogInteger,
	"log_integer": LogInteger,
}

// UnmarshalYAML accepts the canonical type names and a few aliases.
func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	canon, ok := typeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return errs.NewInvalidParameter("type", "unknown parameter type", s)
	}
	*t = canon
	return nil
}

// HiddenMarker in a parameter name keeps it out of argument strings.
const HiddenMarker = "HIDDEN"

// Condition makes a parameter active only while its parent takes one of Values.
type Condition struct {
	Parent string   `yaml:"parent"`
	Values []string `yaml:"values"`
}

// Parameter is one dimension of the space.
type Parameter struct {
	Name      string     `yaml:"name"`
	Type      Type       `yaml:"type"`
	Values    []string   `yaml:"values,omitempty"`
	Min       float64    `yaml:"min,omitempty"`
	Max       float64    `yaml:"max,omitempty"`
	Default   string     `yaml:"default,omitempty"`
	Condition *Condition `yaml:"condition,omitempty"`
}

func (p Parameter) validate() error {
	switch p.Type {
	case Categorical:
		if len(p.Values) == 0 {
			return errs.NewInvalidParameter(p.Name, "categorical parameter needs values", nil)
		}
		if p.Default != "" && !contains(p.Values, p.Default) {
			return errs.NewInvalidParameter(p.Name, "default is not one of the values", p.Default)
		}
	case Real, Integer, LogReal, LogInteger:
		if math.IsNaN(p.Min) || math.IsNaN(p.Max) || p.Min > p.Max {
			return errs.NewInvalidParameter(p.Name, "min must not exceed max", []float64{p.Min, p.Max})
		}
		if (p.Type == LogReal || p.Type == LogInteger) && p.Min <= 0 {
			return errs.NewInvalidParameter(p.Name, "log scale needs a positive min", p.Min)
		}
		if p.Default != "" {
			d, err := strconv.ParseFloat(p.Default, 64)
			if err != nil || d < p.Min || d > p.Max {
				return errs.NewInvalidParameter(p.Name, "default outside [min, max]", p.Default)
			}
		}
	default:
		return errs.NewInvalidParameter(p.Name, "unknown parameter type", string(p.Type))
	}
	return nil
}

// sample draws one value of p.
func (p Parameter) sample(r *rand.Rand) string {
	switch p.Type {
	case Categorical:
		return p.Values[r.IntN(len(p.Values))]
	case Real:
		return formatReal(r.Float64()*(p.Max-p.Min) + p.Min)
	case Integer:
		return strconv.Itoa(int(math.Round(r.Float64()*(p.Max-p.Min) + p.Min)))
	case LogReal:
		return formatReal(logUniform(r, p.Min, p.Max))
	default:
		return strconv.Itoa(int(math.Round(logUniform(r, p.Min, p.Max))))
	}
}

// defaultValue returns the declared default, or the domain's first value
// or lower bound.
func (p Parameter) defaultValue() string {
	if p.Default != "" {
		return p.Default
	}
	switch p.Type {
	case Categorical:
		return p.Values[0]
	case Integer, LogInteger:
		return strconv.Itoa(int(math.Round(p.Min)))
	default:
		return formatReal(p.Min)
	}
}

func logUniform(r *rand.Rand, lo, hi float64) float64 {
	return math.Exp((math.Log(hi)-math.Log(lo))*r.Float64() + math.Log(lo))
}

func formatReal(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Space is an ordered, validated set of parameters.
type Space struct {
	params []Parameter
	byName map[string]int
}

// New validates params and builds a space. Sampling follows declaration
// order, so reordering parameters changes the sampled sequence.
func New(params []Parameter) (*Space, error) {
	s := &Space{params: append([]Parameter(nil), params...), byName: make(map[string]int, len(params))}
	for i, p := range s.params {
		if strings.TrimSpace(p.Name) == "" {
			return nil, errs.NewInvalidParameter("parameters", "parameter without a name", i)
		}
		if _, dup := s.byName[p.Name]; dup {
			return nil, errs.NewInvalidParameter(p.Name, "duplicate parameter", nil)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		s.byName[p.Name] = i
	}
	for _, p := range s.params {
		if p.Condition == nil {
			continue
		}
		if _, ok := s.byName[p.Condition.Parent]; !ok {
			return nil, errs.NewInvalidParameter(p.Name, "condition on unknown parent", p.Condition.Parent)
		}
		if len(p.Condition.Values) == 0 {
			return nil, errs.NewInvalidParameter(p.Name, "condition needs values", nil)
		}
	}
	if err := s.checkCycles(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Space) checkCycles() error {
	for _, p := range s.params {
		seen := map[string]bool{p.Name: true}
		for cur := p; cur.Condition != nil; {
			parent := cur.Condition.Parent
			if seen[parent] {
				return errs.NewInvalidParameter(p.Name, "conditions form a cycle", parent)
			}
			seen[parent] = true
			cur = s.params[s.byName[parent]]
		}
	}
	return nil
}

// Len returns the number of declared parameters.
func (s *Space) Len() int { return len(s.params) }

// Parameters returns a copy of the declared parameters.
func (s *Space) Parameters() []Parameter { return append([]Parameter(nil), s.params...) }

// Sample draws every parameter, drops inactive conditionals and returns the
// canonical argument string.
func (s *Space) Sample(r *rand.Rand) string {
	args := make(map[string]string, len(s.params))
	for _, p := range s.params {
		args[p.Name] = p.sample(r)
	}
	return FormatArgs(s.Filter(args))
}

// Default returns the argument string made of every parameter's default.
func (s *Space) Default() string {
	args := make(map[string]string, len(s.params))
	for _, p := range s.params {
		args[p.Name] = p.defaultValue()
	}
	return FormatArgs(s.Filter(args))
}

// Filter removes parameters whose condition does not hold, repeating until
// no more parameters drop out.
func (s *Space) Filter(args map[string]string) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		out[k] = v
	}
	for changed := true; changed; {
		changed = false
		for _, p := range s.params {
			if p.Condition == nil {
				continue
			}
			if _, ok := out[p.Name]; !ok {
				continue
			}
			parent, ok := out[p.Condition.Parent]
			if !ok || !contains(p.Condition.Values, parent) {
				delete(out, p.Name)
				changed = true
			}
		}
	}
	return out
}

// FormatArgs renders args as "-name value " pairs in name order, leaving out
// hidden parameters. Equal maps always give identical strings.
func FormatArgs(args map[string]string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		if strings.Contains(k, HiddenMarker) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteByte('-')
		sb.WriteString(k)
		sb.WriteByte(' ')
		sb.WriteString(args[k])
		sb.WriteByte(' ')
	}
	return sb.String()
}

// ParseArgs splits an argument string produced by FormatArgs back into a map.
func ParseArgs(argString string) (map[string]string, error) {
	fields := strings.Fields(argString)
	if len(fields)%2 != 0 {
		return nil, errs.NewInvalidParameter("args", "expected -name value pairs", argString)
	}
	args := make(map[string]string, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		name, ok := strings.CutPrefix(fields[i], "-")
		if !ok || name == "" {
			return nil, errs.NewInvalidParameter("args", "expected -name", fields[i])
		}
		args[name] = fields[i+1]
	}
	return args, nil
}

// Tokens returns the argument string as argv entries.
func Tokens(argString string) []string {
	return strings.Fields(argString)
}
