package trajectory

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/space"
)

const (
	BackendNoOp         = "noop"
	BackendRandomSearch = "randomsearch"
	BackendSMAC         = "smac"
	BackendIRace        = "irace"
)

// Inputs locate and interpret the native output of one search run.
type Inputs struct {
	Seed string
	// Log is the optimizer's trajectory log. Empty for the noop backend.
	Log string
	// ResultsTable is the optional per-evaluation CSV the counters are
	// read from.
	ResultsTable string
	// Translation maps backend tokens to canonical names. A nil map passes
	// names through unchanged.
	Translation Translation
	// Filter drops inactive conditional parameters before rendering.
	Filter  func(map[string]string) map[string]string
	Columns CounterOpts
	Logger  zerolog.Logger
}

func (in Inputs) source() string {
	if in.Log == "" {
		return "<trajectory>"
	}
	return in.Log
}

func (in Inputs) render(args map[string]string) string {
	if in.Filter != nil {
		args = in.Filter(args)
	}
	return space.FormatArgs(args)
}

// Parser reads one backend's trajectory format.
type Parser interface {
	Parse(r io.Reader, in Inputs) (*Trajectory, error)
}

type noopParser struct{}

func (noopParser) Parse(_ io.Reader, in Inputs) (*Trajectory, error) { return New(in.Seed), nil }

var parsers = map[string]Parser{
	BackendNoOp:         noopParser{},
	BackendRandomSearch: noopParser{},
	BackendSMAC:         smacParser{},
	BackendIRace:        iraceParser{},
}

// Backends lists the registered backend names.
func Backends() []string {
	return []string{BackendNoOp, BackendRandomSearch, BackendSMAC, BackendIRace}
}

// Lookup returns the parser registered for backend.
func Lookup(backend string) (Parser, error) {
	p, ok := parsers[strings.ToLower(strings.TrimSpace(backend))]
	if !ok {
		return nil, errs.NewInvalidParameter("backend", "unknown trajectory backend, want one of "+strings.Join(Backends(), ", "), backend)
	}
	return p, nil
}

// Parse reconstructs the trajectory of one run and attaches its counters.
func Parse(backend string, in Inputs) (*Trajectory, error) {
	p, err := Lookup(backend)
	if err != nil {
		return nil, err
	}
	log := in.Logger.With().Str("backend", backend).Str("seed", in.Seed).Logger()

	var traj *Trajectory
	if _, noop := p.(noopParser); noop {
		traj, _ = p.Parse(nil, in)
	} else {
		if in.Log == "" {
			return nil, errs.NewInvalidParameter("log", "backend needs a trajectory log", backend)
		}
		f, err := os.Open(in.Log)
		if err != nil {
			return nil, errs.NewIOError("open trajectory", in.Log, err)
		}
		defer f.Close()
		if traj, err = p.Parse(f, in); err != nil {
			return nil, err
		}
	}

	if in.ResultsTable != "" {
		c, err := ReadCounters(in.ResultsTable, in.Columns)
		switch {
		case errs.Is(err, errs.ErrIO):
			log.Warn().Str("path", in.ResultsTable).Msg("results table unavailable; counters left unrecorded")
		case err != nil:
			return nil, err
		default:
			traj.SetCounters(c)
		}
	}
	log.Debug().Int("points", len(traj.Points)).Int("evaluations", traj.Counters.Evaluations).Msg("trajectory parsed")
	return traj, nil
}
