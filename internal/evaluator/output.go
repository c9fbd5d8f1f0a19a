package evaluator

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/signalnine/autotune/internal/errs"
)

var taggedResult = regexp.MustCompile(`^(?:SubProcessWrapper:\s*)?Time\(\s*([^)]*?)\s*\)\s*Score\(\s*([^)]*?)\s*\)$`)

// ParseOutput extracts the score from the last non-empty line of out. The
// reported time is -1 unless the line uses the Time(..) Score(..) form.
func ParseOutput(out []byte) (score, reported float64, err error) {
	line := lastLine(out)
	if line == "" {
		return 0, -1, errs.NewParseError("evaluator output", 0, "", "no output")
	}
	if m := taggedResult.FindStringSubmatch(line); m != nil {
		t, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, -1, errs.NewParseError("evaluator output", 0, line, "bad time")
		}
		s, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, -1, errs.NewParseError("evaluator output", 0, line, "bad score")
		}
		return s, t, nil
	}
	s, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, -1, errs.NewParseError("evaluator output", 0, line, "last line is not a score")
	}
	return s, -1, nil
}

func lastLine(out []byte) string {
	lines := bytes.Split(out, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(string(lines[i])); s != "" {
			return s
		}
	}
	return ""
}
