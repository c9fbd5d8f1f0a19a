package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/signalnine/autotune/internal/errs"
)

// ClassLast selects the final column as the class attribute.
const ClassLast = "last"

// LoadCSV reads a headed CSV file. classColumn is a header name, a 0-based
// column index, "last", or empty for a dataset without a class.
func LoadCSV(path, classColumn string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewIOError("open dataset", path, err)
	}
	defer f.Close()

	ds, err := ReadCSV(f, classColumn)
	if err != nil {
		return nil, errs.Wrapf(err, "loading %s", path)
	}
	return ds, nil
}

// ReadCSV decodes a headed CSV stream.
func ReadCSV(r io.Reader, classColumn string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errs.NewParseError("csv", 0, "", err.Error())
	}
	if len(records) == 0 {
		return nil, errs.NewParseError("csv", 0, "", "missing header row")
	}
	header, rows := records[0], records[1:]
	idx, err := resolveClass(header, classColumn)
	if err != nil {
		return nil, err
	}
	return New(header, idx, rows), nil
}

func resolveClass(header []string, classColumn string) (int, error) {
	switch classColumn {
	case "":
		return -1, nil
	case ClassLast:
		return len(header) - 1, nil
	}
	for i, h := range header {
		if h == classColumn {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(classColumn); err == nil && n >= 0 && n < len(header) {
		return n, nil
	}
	return -1, errs.NewInvalidParameter("class_column", "no such column", classColumn)
}

// WriteCSV writes the dataset with its header row.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Header); err != nil {
		return err
	}
	for _, inst := range d.Instances {
		if err := cw.Write(inst.Values); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the dataset to path, creating parent directories.
func (d *Dataset) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.NewIOError("create dir", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.NewIOError("create", path, err)
	}
	if err := d.WriteCSV(f); err != nil {
		f.Close()
		return errs.NewIOError("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errs.NewIOError("close", path, err)
	}
	return nil
}
