package dataset_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/autotune/internal/dataset"
	"github.com/signalnine/autotune/internal/errs"
)

const irisLike = `sepal,petal,species
5.1,1.4,setosa
7.0,4.7,versicolor
6.3,6.0,virginica
4.9,1.4,setosa
`

func TestReadCSVClassResolution(t *testing.T) {
	tests := []struct {
		name      string
		column    string
		wantIndex int
	}{
		{"by name", "species", 2},
		{"last", dataset.ClassLast, 2},
		{"by index", "0", 0},
		{"no class", "", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := dataset.ReadCSV(strings.NewReader(irisLike), tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, ds.ClassIndex)
			assert.Equal(t, 4, ds.Len())
		})
	}

	_, err := dataset.ReadCSV(strings.NewReader(irisLike), "colour")
	assert.True(t, errs.Is(err, errs.ErrInvalidParameter))
}

func TestClassCounts(t *testing.T) {
	ds, err := dataset.ReadCSV(strings.NewReader(irisLike), "species")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"setosa": 2, "versicolor": 1, "virginica": 1}, ds.ClassCounts())
	assert.Equal(t, []string{"setosa", "versicolor", "virginica"}, ds.Classes())
	assert.Equal(t, []int{0, 3}, ds.IndicesByClass()["setosa"])
}

func TestSubsetIsIndependent(t *testing.T) {
	ds, err := dataset.ReadCSV(strings.NewReader(irisLike), "species")
	require.NoError(t, err)

	sub := ds.Subset([]int{3, 3, 1})
	require.Equal(t, 3, sub.Len())
	assert.Equal(t, "setosa", sub.Instances[0].Class)
	assert.Equal(t, "versicolor", sub.Instances[2].Class)

	sub.Instances[0].Values[0] = "changed"
	assert.Equal(t, "4.9", ds.Instances[3].Values[0])
}

func TestCSVRoundTripFile(t *testing.T) {
	ds, err := dataset.ReadCSV(strings.NewReader(irisLike), "species")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "train.csv")
	require.NoError(t, ds.SaveCSV(path))

	back, err := dataset.LoadCSV(path, "species")
	require.NoError(t, err)
	assert.Equal(t, ds.Instances, back.Instances)

	var buf bytes.Buffer
	require.NoError(t, back.WriteCSV(&buf))
	assert.Equal(t, irisLike, buf.String())
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := dataset.LoadCSV(filepath.Join(t.TempDir(), "absent.csv"), "last")
	assert.True(t, errs.Is(err, errs.ErrIO))
}
