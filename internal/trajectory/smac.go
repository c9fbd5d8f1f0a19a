package trajectory

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/signalnine/autotune/internal/errs"
)

// smacLine matches `time, score, x, x, x, name='value', ...`.
var smacLine = regexp.MustCompile(`^([\-.\d]+), ([\-.\dEe+]+), [\-.\d]+, [\-.\d]+, [\-.\d]+, (.*)$`)

type smacParser struct{}

func (smacParser) Parse(r io.Reader, in Inputs) (*Trajectory, error) {
	traj := New(in.Seed)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	best := 0.0
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		m := smacLine.FindStringSubmatch(line)
		if m == nil {
			return nil, errs.NewParseError(in.source(), lineNo, line, "unrecognised trajectory line")
		}
		tm, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, errs.NewParseError(in.source(), lineNo, m[1], "time is not a number")
		}
		score, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, errs.NewParseError(in.source(), lineNo, m[2], "score is not a number")
		}
		if len(traj.Points) > 0 && score >= best {
			continue
		}
		args, err := smacArgs(m[3], in.Translation)
		if err != nil {
			return nil, errs.NewParseError(in.source(), lineNo, line, err.Error())
		}
		if err := traj.AddPoint(Point{Time: tm, Score: score, Args: in.render(args)}); err != nil {
			return nil, err
		}
		best = score
	}
	if err := sc.Err(); err != nil {
		return nil, errs.NewIOError("read trajectory", in.source(), err)
	}
	return traj, nil
}

// smacArgs decodes `name='value', name2='value2'` into canonical names.
func smacArgs(s string, t Translation) (map[string]string, error) {
	args := map[string]string{}
	for _, part := range strings.Split(s, ", ") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, errs.Newf("argument %q has no value", part)
		}
		canonical, ok := t.Canonical(strings.TrimSpace(name))
		if !ok {
			return nil, errs.Newf("unknown parameter %q", name)
		}
		args[canonical] = unquote(strings.TrimSpace(value))
	}
	return args, nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
