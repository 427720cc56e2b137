package registry

import (
	"regexp"

	"github.com/metarelay/metarelay/internal/resolve"
	"github.com/metarelay/metarelay/internal/rlog"
	"github.com/metarelay/metarelay/internal/types"
)

// filterPattern matches "FIELD OP 'VALUE'" or "FIELD OP \"VALUE\"" where
// OP is == or !=.
var filterPattern = regexp.MustCompile(`^\s*([A-Za-z0-9_.]+)\s*(==|!=)\s*(?:'([^']*)'|"([^"]*)")\s*$`)

type filterExpr struct {
	field string
	op    string
	value string
}

func parseFilter(expr string) (filterExpr, bool) {
	m := filterPattern.FindStringSubmatch(expr)
	if m == nil {
		return filterExpr{}, false
	}
	value := m[3]
	if m[4] != "" {
		value = m[4]
	}
	return filterExpr{field: m[1], op: m[2], value: value}, true
}

// EvaluateFilters AND-combines every filter expression against event. An
// unparseable expression makes the whole list evaluate false (and logs a
// warning) rather than raising.
func EvaluateFilters(filters []string, event *types.Event) bool {
	logger := rlog.WithComponent("registry")
	for _, raw := range filters {
		f, ok := parseFilter(raw)
		if !ok {
			logger.Warn().Str("filter", raw).Msg("unparseable filter expression, treating handler as non-matching")
			return false
		}
		resolved := resolve.Stringify(resolve.Path(event, f.field))
		switch f.op {
		case "==":
			if resolved != f.value {
				return false
			}
		case "!=":
			if resolved == f.value {
				return false
			}
		}
	}
	return true
}
