package llm

import "strings"

// ExtractJSONArray pulls the JSON array out of a possibly noisy model
// response: markdown fences, prose before or after the payload. It
// returns the substring between the first '[' and the last ']', or ""
// when no array is present.
func ExtractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
