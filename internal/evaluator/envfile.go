package evaluator

import (
	"os"
	"strings"

	"github.com/signalnine/autotune/internal/errs"
)

// ReadEnvFile reads KEY=VALUE lines. Blank lines, comments and an "export "
// prefix are allowed; surrounding quotes are stripped from values.
func ReadEnvFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewIOError("read env file", path, err)
	}
	var envVars []string
	for _, line := range strings.Split(string(data), "\n") {
		s := strings.TrimSpace(line)
		if s == "" || s[0] == '#' {
			continue
		}
		s = strings.TrimPrefix(s, "export ")
		key, val, ok := strings.Cut(s, "=")
		if !ok {
			continue
		}
		envVars = append(envVars, strings.TrimSpace(key)+"="+stripQuotes(val))
	}
	return envVars, nil
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
