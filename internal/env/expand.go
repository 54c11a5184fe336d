// Package env expands environment references embedded in configuration text.
package env

import (
	"os"
	"strings"
	"unicode"
)

const prefix = "${env."

// Expand replaces all occurrences of ${env.KEY} in the input with the value of
// the environment variable KEY (or "" if unset). Malformed references are kept
// literally.
func Expand(value string) string {
	return ExpandWith(value, os.Getenv)
}

// ExpandWith behaves like Expand but resolves keys with lookup.
func ExpandWith(value string, lookup func(key string) string) string {
	if !strings.Contains(value, prefix) {
		return value
	}
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(value[i:], prefix)
		if idx < 0 {
			b.WriteString(value[i:])
			break
		}
		b.WriteString(value[i : i+idx])
		startKey := i + idx + len(prefix)
		endKey := strings.IndexByte(value[startKey:], '}')
		if endKey < 0 {
			b.WriteString(value[i+idx:])
			break
		}
		key := value[startKey : startKey+endKey]
		if !isKey(key) {
			// keep the prefix literal and rescan right after it so nested
			// references are still expanded
			b.WriteString(value[i+idx : startKey])
			i = startKey
			continue
		}
		b.WriteString(lookup(key))
		i = startKey + endKey + 1
	}
	return b.String()
}

func isKey(key string) bool {
	for _, r := range key {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}
