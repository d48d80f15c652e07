package ai

import (
	"strings"
)

// ExtractFirstJSONSpan returns the first outermost balanced {...} or [...] in s.
// Markdown code fences are ignored and brackets inside JSON strings do not count.
func ExtractFirstJSONSpan(s string) (string, bool) {
	cleaned := stripCodeFence(s)

	start := strings.IndexAny(cleaned, "{[")
	if start == -1 {
		return "", false
	}

	opener := cleaned[start]
	closer := byte('}')
	if opener == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(cleaned); i++ {
		char := cleaned[i]

		if escaped {
			escaped = false
			continue
		}

		if inString {
			switch char {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch char {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return cleaned[start : i+1], true
			}
		}
	}

	return "", false
}

func stripCodeFence(s string) string {
	cleaned := strings.TrimSpace(s)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```")
	// Drop the language tag line ("json", "JSON", ...).
	if nl := strings.IndexByte(cleaned, '\n'); nl != -1 && !strings.ContainsAny(cleaned[:nl], "{[") {
		cleaned = cleaned[nl+1:]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
