// Package dataset holds the labelled tabular data that partitions are cut from.
//
// The partition engine only needs row identity and the class label of each
// row, so attribute values are kept as the raw strings read from disk and
// written back unchanged when a partition is materialized.
package dataset

import (
	"sort"
)

// Instance is one row of a dataset.
type Instance struct {
	Values []string
	// Class is the label of the row; empty when the dataset has no class.
	Class string
}

// Dataset is an ordered collection of instances sharing a header.
type Dataset struct {
	Header     []string
	ClassIndex int // -1 when there is no class attribute
	Instances  []Instance
}

// New builds a dataset from rows; classIndex selects the label column or -1.
func New(header []string, classIndex int, rows [][]string) *Dataset {
	ds := &Dataset{Header: append([]string(nil), header...), ClassIndex: classIndex}
	ds.Instances = make([]Instance, len(rows))
	for i, row := range rows {
		inst := Instance{Values: append([]string(nil), row...)}
		if classIndex >= 0 && classIndex < len(row) {
			inst.Class = row[classIndex]
		}
		ds.Instances[i] = inst
	}
	return ds
}

// Len returns the number of instances.
func (d *Dataset) Len() int { return len(d.Instances) }

// HasClass reports whether the rows carry a class label.
func (d *Dataset) HasClass() bool { return d.ClassIndex >= 0 }

// Copy returns a dataset sharing no slices with d.
func (d *Dataset) Copy() *Dataset {
	return d.Subset(identity(d.Len()))
}

// Subset returns a new dataset made of the instances at idx, in the order
// given. Indices may repeat (sampling with replacement).
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{
		Header:     append([]string(nil), d.Header...),
		ClassIndex: d.ClassIndex,
		Instances:  make([]Instance, len(idx)),
	}
	for i, j := range idx {
		src := d.Instances[j]
		out.Instances[i] = Instance{Values: append([]string(nil), src.Values...), Class: src.Class}
	}
	return out
}

// Classes returns the distinct class labels in sorted order. A dataset
// without a class attribute reports a single empty label.
func (d *Dataset) Classes() []string {
	counts := d.ClassCounts()
	labels := make([]string, 0, len(counts))
	for c := range counts {
		labels = append(labels, c)
	}
	sort.Strings(labels)
	return labels
}

// ClassCounts returns the number of instances per class label.
func (d *Dataset) ClassCounts() map[string]int {
	counts := make(map[string]int)
	for _, inst := range d.Instances {
		counts[inst.Class]++
	}
	return counts
}

// IndicesByClass groups instance indices by class, preserving dataset order.
func (d *Dataset) IndicesByClass() map[string][]int {
	groups := make(map[string][]int)
	for i, inst := range d.Instances {
		groups[inst.Class] = append(groups[inst.Class], i)
	}
	return groups
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
