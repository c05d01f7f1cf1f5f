package types

import "strings"

// CleanJSONFromMarkdown removes markdown code fences around a JSON payload.
// Model replies often wrap the object in ```json ... ``` and may add prose
// before or after the fence.
func CleanJSONFromMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	// Fall back to the outermost object when prose surrounds it.
	if !strings.HasPrefix(s, "{") {
		start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}
	return s
}
