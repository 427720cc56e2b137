package resolve

import (
	"fmt"
	"strconv"
)

// Stringify converts a resolved value to its string form, for filter
// comparison and template substitution alike. nil becomes the empty
// string; numbers use their natural decimal form rather than Go's default
// %v formatting of float64 (so payload numbers from JSON don't print as
// "3" -> "3" but also don't print "3.1400000000000001"-style artifacts for
// common cases).
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
