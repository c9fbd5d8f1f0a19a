package trajectory

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/signalnine/autotune/internal/errs"
)

// Translation maps backend parameter tokens to canonical parameter names.
type Translation map[string]string

// Canonical translates a backend token.
func (t Translation) Canonical(token string) (string, bool) {
	if t == nil {
		return token, true
	}
	name, ok := t[token]
	return name, ok
}

// quotedLine is the parameters-file form `token "-name " type (domain)`.
var quotedLine = regexp.MustCompile(`^(\S+)\s+"-(\S+)\s*".*$`)

// ReadTranslation loads a translation file.
func ReadTranslation(path string) (Translation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewIOError("open translation file", path, err)
	}
	defer f.Close()
	return ParseTranslation(f, path)
}

// ParseTranslation reads lines of either `token "-name " ...` or
// `token name`. Blank lines and lines starting with '#' are skipped.
func ParseTranslation(r io.Reader, source string) (Translation, error) {
	t := Translation{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := quotedLine.FindStringSubmatch(line); m != nil {
			t[m[1]] = m[2]
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 2 && !strings.ContainsRune(line, '"') {
			t[fields[0]] = strings.TrimPrefix(fields[1], "-")
			continue
		}
		return nil, errs.NewParseError(source, lineNo, line, "unrecognised translation line")
	}
	if err := sc.Err(); err != nil {
		return nil, errs.NewIOError("read translation file", source, err)
	}
	return t, nil
}
