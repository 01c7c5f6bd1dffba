package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	reFileUnsafe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]+`)
)

func StringPtr(v string) *string { return &v }

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// NonBlank returns nil for empty or whitespace-only input, otherwise the
// trimmed value.
func NonBlank(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func IsBlank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

func CollapseSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// SafeSegment turns free text (mail subjects, sender names) into a single
// path segment.
func SafeSegment(input string, max int) string {
	out := reFileUnsafe.ReplaceAllString(input, "_")
	out = CollapseSpaces(out)
	out = strings.Trim(out, ". ")
	if max > 0 && len([]rune(out)) > max {
		out = strings.TrimSpace(string([]rune(out)[:max]))
	}
	if out == "" {
		return "unbenannt"
	}
	return out
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
