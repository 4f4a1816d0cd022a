package secret

import (
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LookupFunc looks up one variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ExpandEnvStrict expands environment variables in s.
//
//   - $VAR and ${VAR} are expanded.
//   - ${VAR} naming an unset variable is an error wrapping ErrMissingEnv.
//   - $$ emits a literal $.
func ExpandEnvStrict(s string) (string, error) {
	return Expand(s, os.LookupEnv)
}

// Expand is ExpandEnvStrict over an arbitrary lookup.
func Expand(s string, lookup LookupFunc) (string, error) {
	const dollar = "\x00TOOLPROXY_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	missing := make(map[string]struct{})
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := lookup(match[1]); !ok {
			missing[match[1]] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := slices.Sorted(maps.Keys(missing))
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(keys, ", "))
	}

	s = os.Expand(s, func(key string) string {
		v, _ := lookup(key)
		return v
	})
	return strings.ReplaceAll(s, dollar, "$"), nil
}
