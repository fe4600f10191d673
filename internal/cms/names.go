package cms

import (
	"path/filepath"
	"strconv"
)

// ResolveUniqueName returns candidate if it is not in existing. Otherwise it returns
// "<base> copy<ext>", or "<base> copy <n><ext>" for the smallest n >= 2 that is free.
func ResolveUniqueName(candidate string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		taken[name] = struct{}{}
	}
	if _, ok := taken[candidate]; !ok {
		return candidate
	}

	ext := filepath.Ext(candidate)
	base := candidate[:len(candidate)-len(ext)]

	name := base + " copy" + ext
	for n := 2; ; n++ {
		if _, ok := taken[name]; !ok {
			return name
		}
		name = base + " copy " + strconv.Itoa(n) + ext
	}
}
