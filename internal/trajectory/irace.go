package trajectory

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/signalnine/autotune/internal/errs"
)

var iraceMarker = regexp.MustCompile(`^Selected candidate:\s*(\S+)\s*mean value:\s*(\S+).*$`)

// iraceSkip is the number of lines between a marker and its table.
const iraceSkip = 2

type iraceParser struct{}

func (iraceParser) Parse(r io.Reader, in Inputs) (*Trajectory, error) {
	traj := New(in.Seed)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		lineNo++
		return sc.Text(), true
	}

	block := 0
	best := 0.0
	for {
		line, ok := next()
		if !ok {
			break
		}
		m := iraceMarker.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		block++
		score, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, errs.NewParseError(in.source(), lineNo, m[2], "mean value is not a number")
		}
		for i := 0; i < iraceSkip; i++ {
			if _, ok := next(); !ok {
				return nil, errs.NewParseError(in.source(), lineNo, line, "log ends inside a candidate block")
			}
		}

		var header []string
		args := map[string]string{}
		rows := 0
		for {
			row, ok := next()
			if !ok || strings.TrimSpace(row) == "" {
				break
			}
			if strings.HasPrefix(row, " ") {
				header = append([]string{""}, strings.Fields(row)...)
				continue
			}
			if header == nil {
				return nil, errs.NewParseError(in.source(), lineNo, row, "data row before header")
			}
			cells := strings.Fields(row)
			if len(cells) != len(header) {
				return nil, errs.NewParseError(in.source(), lineNo, row, "data row does not match header")
			}
			rows++
			for i := 1; i < len(cells); i++ {
				if cells[i] == "NA" || cells[i] == "<NA>" {
					continue
				}
				name, ok := in.Translation.Canonical(header[i])
				if !ok {
					return nil, errs.NewParseError(in.source(), lineNo, header[i], "unknown parameter")
				}
				args[name] = unquote(cells[i])
			}
		}

		if rows == 0 {
			return nil, errs.NewParseError(in.source(), lineNo, line, "candidate block has no data row")
		}
		if len(traj.Points) > 0 && score >= best {
			continue
		}
		if err := traj.AddPoint(Point{Time: float64(block), Score: score, Args: in.render(args)}); err != nil {
			return nil, err
		}
		best = score
	}
	if err := sc.Err(); err != nil {
		return nil, errs.NewIOError("read trajectory", in.source(), err)
	}
	return traj, nil
}
