// Package resolve implements the single dotted-path resolution helper used
// by both the handler registry's filters and the template resolver: given
// an event and a path like "payload.conclusion" or "ref", walk the path
// against the event and return the resolved value, or nil if any segment
// is missing or traverses a non-mapping intermediate.
package resolve

import "github.com/metarelay/metarelay/internal/types"

// Path resolves a dotted path against an event. The first segment is a
// top-level event attribute name or "payload"; remaining segments index
// successively into the payload mapping. A missing segment, or an
// intermediate value that is not itself a mapping, resolves to nil.
func Path(event *types.Event, path string) any {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil
	}

	value, ok := event.Field(segments[0])
	if !ok {
		return nil
	}

	for _, seg := range segments[1:] {
		m, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		value, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return value
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}
