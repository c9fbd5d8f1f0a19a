package space_test

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/space"
)

const classifierSpace = `
- name: classifier
  type: categorical
  values: [j48, forest]
  default: j48
- name: C
  type: real
  min: 0.05
  max: 0.5
  condition: {parent: classifier, values: [j48]}
- name: I
  type: log_integer
  min: 2
  max: 256
  condition: {parent: classifier, values: [forest]}
- name: _HIDDEN_depth
  type: integer
  min: 0
  max: 3
`

func load(t *testing.T, doc string) *space.Space {
	t.Helper()
	var params []space.Parameter
	require.NoError(t, yaml.Unmarshal([]byte(doc), &params))
	s, err := space.New(params)
	require.NoError(t, err)
	return s
}

func TestFormatArgsIsCanonical(t *testing.T) {
	a := space.FormatArgs(map[string]string{"b": "2", "a": "1", "x_HIDDEN": "9"})
	b := space.FormatArgs(map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, "-a 1 -b 2 ", a)
	assert.Equal(t, a, b)

	back, err := space.ParseArgs(a)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, back)
}

func TestSampleRespectsConditions(t *testing.T) {
	s := load(t, classifierSpace)
	r := rand.New(rand.NewPCG(1, 2))
	sawJ48, sawForest := false, false
	for i := 0; i < 200; i++ {
		args, err := space.ParseArgs(s.Sample(r))
		require.NoError(t, err)
		assert.NotContains(t, args, "_HIDDEN_depth")
		switch args["classifier"] {
		case "j48":
			sawJ48 = true
			assert.NotContains(t, args, "I")
			c, err := strconv.ParseFloat(args["C"], 64)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, c, 0.05)
			assert.LessOrEqual(t, c, 0.5)
		case "forest":
			sawForest = true
			assert.NotContains(t, args, "C")
			n, err := strconv.Atoi(args["I"])
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, 2)
			assert.LessOrEqual(t, n, 256)
		default:
			t.Fatalf("unexpected classifier %q", args["classifier"])
		}
	}
	assert.True(t, sawJ48)
	assert.True(t, sawForest)
}

func TestSampleIsSeeded(t *testing.T) {
	s := load(t, classifierSpace)
	a := rand.New(rand.NewPCG(7, 7))
	b := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 20; i++ {
		assert.Equal(t, s.Sample(a), s.Sample(b))
	}
}

func TestDefault(t *testing.T) {
	s := load(t, classifierSpace)
	assert.Equal(t, "-C 0.05 -classifier j48 ", s.Default())
}

func TestNewRejectsBadSpaces(t *testing.T) {
	tests := map[string][]space.Parameter{
		"empty categorical": {{Name: "a", Type: space.Categorical}},
		"inverted range":    {{Name: "a", Type: space.Real, Min: 2, Max: 1}},
		"log from zero":     {{Name: "a", Type: space.LogReal, Min: 0, Max: 1}},
		"bad default":       {{Name: "a", Type: space.Integer, Min: 0, Max: 3, Default: "9"}},
		"duplicate":         {{Name: "a", Type: space.Real, Max: 1}, {Name: "a", Type: space.Real, Max: 1}},
		"unknown parent": {
			{Name: "a", Type: space.Real, Max: 1, Condition: &space.Condition{Parent: "b", Values: []string{"x"}}},
		},
		"cycle": {
			{Name: "a", Type: space.Categorical, Values: []string{"x"}, Condition: &space.Condition{Parent: "b", Values: []string{"x"}}},
			{Name: "b", Type: space.Categorical, Values: []string{"x"}, Condition: &space.Condition{Parent: "a", Values: []string{"x"}}},
		},
	}
	for name, params := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := space.New(params)
			assert.True(t, errs.Is(err, errs.ErrInvalidParameter))
		})
	}
}

func TestUnknownTypeInYAML(t *testing.T) {
	var params []space.Parameter
	err := yaml.Unmarshal([]byte("- name: a\n  type: complex\n"), &params)
	assert.True(t, errs.Is(err, errs.ErrInvalidParameter))
}
