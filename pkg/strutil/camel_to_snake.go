// Package strutil contains string utilities.
package strutil

import (
	"strings"
	"unicode"
)

// CamelToSnake converts a CamelCaseIdentifier to a snake_case_identifier. A
// leading lower-case letter is kept as is. All-cap words are converted to lower
// case; HTTP becomes http and HTTPRequest becomes http_request. Digits stay
// attached to the word before them.
func CamelToSnake(camel string) string {
	var sb strings.Builder
	runes := []rune(camel)
	for i, r := range runes {
		if 0 < i && unicode.IsUpper(r) &&
			(unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i < len(runes)-1 && unicode.IsLower(runes[i+1]))) {
			sb.WriteRune('_')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
