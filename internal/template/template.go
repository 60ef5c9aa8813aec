// Package template performs flat ##key## placeholder substitution.
//
// Substitution is a single left-to-right pass: replacement values are copied
// into the output as-is and never rescanned, so a value that itself looks like
// a placeholder stays literal. Placeholders whose key is missing from the
// mapping are left untouched. There are no loops, conditionals or nesting.
package template

import (
	"regexp"
	"strings"
)

// Delimiter wraps placeholder keys on both sides.
const Delimiter = "##"

// placeholderPattern matches ##key## where key is letters, digits, '_' or '-'.
var placeholderPattern = regexp.MustCompile(Delimiter + `([A-Za-z0-9_-]+)` + Delimiter)

// Render replaces every mapped placeholder in text with its value.
func Render(text string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(text, Delimiter) {
		return text
	}

	matches := placeholderPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		key := text[m[2]:m[3]]

		value, ok := values[key]
		if !ok {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(value)
		last = end
	}
	b.WriteString(text[last:])

	return b.String()
}

// Placeholders returns the distinct keys referenced in text, in first-seen order.
func Placeholders(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		keys = append(keys, m[1])
	}
	return keys
}

// Unmapped returns the placeholder keys in text that have no value.
func Unmapped(text string, values map[string]string) []string {
	var missing []string
	for _, key := range Placeholders(text) {
		if _, ok := values[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// keyPattern matches a bare placeholder key.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidKey reports whether key can appear between delimiters.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
