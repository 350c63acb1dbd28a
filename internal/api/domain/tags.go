package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ParseTagNames splits a comma separated list into trimmed, unique names in
// input order. An empty input yields no names and clears the tags; an input
// with only separators and blanks is ErrNoTags.
func ParseTagNames(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}

	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, part := range strings.Split(s, tagNameSeparator) {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		if utf8.RuneCountInString(name) > MaxTagNameLength {
			return nil, fmt.Errorf("%w: %s", ErrTagTooLong, name)
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	if len(names) == 0 {
		return nil, ErrNoTags
	}
	return names, nil
}
