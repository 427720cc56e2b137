package dispatch

import (
	"regexp"

	"github.com/metarelay/metarelay/internal/resolve"
	"github.com/metarelay/metarelay/internal/types"
)

// placeholderPattern matches "{{PATH}}" placeholders in a command template.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// ResolveTemplate substitutes every "{{PATH}}" placeholder in template with
// the stringified dotted-path resolution against event. Unknown paths,
// null intermediates, and null leaves all resolve to the
// empty string. This is a pure function of (template, event): it neither
// observes nor mutates any external state.
func ResolveTemplate(template string, event *types.Event) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		return resolve.Stringify(resolve.Path(event, path))
	})
}
