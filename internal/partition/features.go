package partition

import (
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/signalnine/autotune/internal/dataset"
)

// summarize computes the feature row reported for one partition.
func summarize(ds *dataset.Dataset) map[string]string {
	feats := map[string]string{
		"numInstances": strconv.Itoa(ds.Len()),
	}
	if !ds.HasClass() || ds.Len() == 0 {
		feats["numClasses"] = "0"
		return feats
	}
	counts := ds.ClassCounts()
	classes := ds.Classes()
	p := make([]float64, len(classes))
	majority := 0
	for i, c := range classes {
		p[i] = float64(counts[c]) / float64(ds.Len())
		majority = max(majority, counts[c])
	}
	feats["numClasses"] = strconv.Itoa(len(classes))
	feats["classEntropy"] = formatFloat(stat.Entropy(p))
	feats["majorityClassFraction"] = formatFloat(float64(majority) / float64(ds.Len()))
	return feats
}
