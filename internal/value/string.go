package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// String renders a specifier the way the runtime's print routines would:
// om for Omega, braces for sets and maps, brackets for tuples. Set and map
// elements are sorted textually so the rendering is deterministic.
func String(s Specifier) string {
	switch v := s.(type) {
	case Omega:
		return "om"
	case Short:
		return strconv.FormatInt(int64(v), 10)
	case *LongValue:
		return v.Int.String()
	case Real:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case Label:
		return fmt.Sprintf("label(%d)", int32(v))
	case *StringValue:
		return strconv.Quote(v.Data)
	case *ProcValue:
		return fmt.Sprintf("<procedure %s>", v.Name)
	case *OpaqueValue:
		return fmt.Sprintf("<opaque %d>", v.TypeTag)
	case *FileValue:
		return fmt.Sprintf("<file %s>", v.Name)
	case *Set:
		var parts []string
		it := v.Iterate()
		for {
			el, ok := it.Next()
			if !ok {
				break
			}
			parts = append(parts, String(el))
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	case *Map:
		var parts []string
		it := v.Iterate()
		for {
			d, r, ok := it.Next()
			if !ok {
				break
			}
			parts = append(parts, String(d)+" => "+String(r))
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	case *Tuple:
		var parts []string
		it := v.Iterate()
		for {
			el, ok := it.Next()
			if !ok {
				break
			}
			parts = append(parts, String(el))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "?"
}
