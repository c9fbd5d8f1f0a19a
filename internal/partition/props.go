package partition

import (
	"sort"
	"strconv"
	"strings"

	"github.com/signalnine/autotune/internal/errs"
)

// NestedDelim separates a wrapping generator's own arguments from its
// child generator kind and the child's arguments.
const NestedDelim = "[$]"

// colonEscape is written in front of ':' inside property values.
const colonEscape = "__COLONESCAPE__"

// Escapes accepted before a literal ':' when parsing.
var colonEscapes = []string{colonEscape, `\`, "[@]", "[]"}

// SeedPlaceholder is substituted by experiment setup before a partition
// string reaches the engine; seeing it here is an error.
const SeedPlaceholder = "{SEED}"

// Props is a parsed key=value:key=value property string.
type Props map[string]string

// ParseProps parses a property string. Empty input yields empty Props.
func ParseProps(s string) (Props, error) {
	props := Props{}
	if strings.TrimSpace(s) == "" {
		return props, nil
	}
	for _, field := range splitUnescaped(s) {
		eq := strings.IndexByte(field, '=')
		if eq < 0 {
			return nil, errs.NewInvalidParameter("properties", "expected key=value", field)
		}
		props[field[:eq]] = unescape(field[eq+1:])
	}
	return props, nil
}

func splitUnescaped(s string) []string {
	var fields []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != ':' || escapedAt(s, i) {
			continue
		}
		fields = append(fields, s[start:i])
		start = i + 1
	}
	return append(fields, s[start:])
}

func escapedAt(s string, i int) bool {
	for _, esc := range colonEscapes {
		if strings.HasSuffix(s[:i], esc) {
			return true
		}
	}
	return false
}

func unescape(v string) string {
	for _, esc := range colonEscapes {
		v = strings.ReplaceAll(v, esc+":", ":")
	}
	return v
}

// Format renders the properties with the given keys first, in order, and
// any remaining keys sorted after them.
func (p Props) Format(first ...string) string {
	seen := make(map[string]bool, len(first))
	keys := make([]string, 0, len(p))
	for _, k := range first {
		if _, ok := p[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range p {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strings.ReplaceAll(p[k], ":", colonEscape+":"))
	}
	return sb.String()
}

// String renders the properties with sorted keys.
func (p Props) String() string { return p.Format() }

// Int reads key as an integer, returning def when the key is absent.
func (p Props) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errs.NewInvalidParameter(key, "not an integer", v)
	}
	return n, nil
}

// Seed reads key as an integer seed, rejecting an unsubstituted placeholder.
func (p Props) Seed(key string, def int64) (int64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	if v == SeedPlaceholder {
		return 0, errs.NewInvalidParameter(key, "seed placeholder was not substituted", v)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, errs.NewInvalidParameter(key, "not an integer seed", v)
	}
	return n, nil
}

// Float reads key as a float, returning def when the key is absent.
func (p Props) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, errs.NewInvalidParameter(key, "not a number", v)
	}
	return f, nil
}

// Bool reads key as a boolean, returning def when the key is absent.
func (p Props) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, errs.NewInvalidParameter(key, "not a boolean", v)
	}
	return b, nil
}

// Nested is the three-part argument form used by wrapping generators.
type Nested struct {
	Current   string
	ChildKind string
	Child     string
}

// SplitNested splits "current[$]childKind[$]child". The child part may
// itself contain further nested delimiters.
func SplitNested(s string) (Nested, error) {
	parts := strings.SplitN(s, NestedDelim, 3)
	if len(parts) != 3 {
		return Nested{}, errs.NewInvalidParameter("nested", "expected args[$]childKind[$]childArgs", s)
	}
	if strings.TrimSpace(parts[1]) == "" {
		return Nested{}, errs.NewInvalidParameter("nested", "missing child generator kind", s)
	}
	return Nested{Current: parts[0], ChildKind: strings.TrimSpace(parts[1]), Child: parts[2]}, nil
}

func (n Nested) String() string {
	return n.Current + NestedDelim + n.ChildKind + NestedDelim + n.Child
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
