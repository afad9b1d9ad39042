// Package params resolves the named substitution variables that
// parameterize every pipeline step.
package params

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shipper-ci/shipper/module/release/types"
	"github.com/shipper-ci/shipper/util/common/errors"
)

// MaxIndirection bounds how many resolution passes are attempted over
// defaults whose expressions reference other parameters. A chain
// deeper than this (or any cycle) fails instead of hanging.
const MaxIndirection = 4

var refPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Config is the fully resolved parameter set consumed by downstream
// steps.
type Config map[string]string

// Get returns the value for name, failing if it was never resolved.
// Steps call this instead of indexing so a missing parameter surfaces
// as a ConfigurationError rather than an empty string.
func (c Config) Get(name string) (string, error) {
	v, ok := c[name]
	if !ok {
		return "", errors.NewConfigurationError(name, "parameter not resolved")
	}
	return v, nil
}

// Expand substitutes every ${NAME} reference in s from the resolved
// configuration. A reference to a parameter that was never resolved is
// a ConfigurationError.
func (c Config) Expand(s string) (string, error) {
	var missing string
	out := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		v, ok := c[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return v
	})
	if missing != "" {
		return "", errors.NewConfigurationError(missing, "referenced but never resolved")
	}
	return out, nil
}

// Names returns the resolved parameter names in sorted order.
func (c Config) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve produces a Config from declared defaults, caller overrides
// and environment-provided seed values (for example the project id).
// Overrides are literal and always win over defaults. Default
// expressions may reference other parameters as ${NAME} through at
// most MaxIndirection levels.
//
// On any failure Resolve returns a nil Config: no partially resolved
// state leaks to the caller.
func Resolve(defaults []types.Parameter, overrides map[string]string, seed map[string]string) (Config, error) {
	resolved := make(Config, len(defaults)+len(overrides)+len(seed))
	for name, value := range seed {
		resolved[name] = value
	}
	for name, value := range overrides {
		resolved[name] = value
	}

	// Defaults that an override or seed already covers are settled;
	// the rest resolve iteratively until a pass makes no progress.
	pending := make([]types.Parameter, 0, len(defaults))
	for _, p := range defaults {
		if p.Name == "" {
			return nil, errors.NewConfigurationError("", "parameter with empty name")
		}
		if _, ok := resolved[p.Name]; ok {
			continue
		}
		pending = append(pending, p)
	}

	for pass := 0; pass < MaxIndirection && len(pending) > 0; pass++ {
		var next []types.Parameter
		for _, p := range pending {
			value, ok := expand(p.Default, resolved)
			if !ok {
				next = append(next, p)
				continue
			}
			resolved[p.Name] = value
		}
		if len(next) == len(pending) {
			// No progress: an unresolvable reference or a cycle.
			first := next[0]
			return nil, errors.NewConfigurationError(first.Name,
				fmt.Sprintf("default %q references unresolvable parameters", first.Default))
		}
		pending = next
	}

	if len(pending) > 0 {
		first := pending[0]
		return nil, errors.NewConfigurationError(first.Name,
			fmt.Sprintf("resolution exceeded %d indirection levels", MaxIndirection))
	}
	return resolved, nil
}

// expand substitutes every ${NAME} reference in expr from values. It
// reports false when any referenced parameter is not yet available.
func expand(expr string, values Config) (string, bool) {
	complete := true
	out := refPattern.ReplaceAllStringFunc(expr, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		v, ok := values[name]
		if !ok {
			complete = false
			return match
		}
		return v
	})
	if !complete {
		return "", false
	}
	return out, true
}
