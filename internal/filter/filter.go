package filter

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Wildcard is the specification that matches every location.
const Wildcard = "*"

// Filter selects a line range in files whose name contains Filename.
type Filter struct {
	Filename  string `json:"filename"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// IsWildcard reports whether f matches every location.
func (f Filter) IsWildcard() bool {
	return f.Filename == Wildcard
}

// Matches reports whether the location falls within f.
func (f Filter) Matches(filename string, line int) bool {
	if f.IsWildcard() {
		return true
	}
	return strings.Contains(norm.NFC.String(filename), f.Filename) &&
		line >= f.StartLine && line <= f.EndLine
}

func (f Filter) String() string {
	if f.IsWildcard() {
		return Wildcard
	}
	return fmt.Sprintf("%s@%d@%d", f.Filename, f.StartLine, f.EndLine)
}

// Set is an unordered collection of filters with any-match semantics.
// The zero Set matches nothing.
type Set []Filter

// Parse parses a filter specification. An empty specification yields an
// empty Set.
func Parse(spec string) Set {
	var set Set
	if spec == Wildcard {
		set = append(set, Filter{Filename: Wildcard})
	}

	value := spec
	for {
		file, rest, ok := strings.Cut(value, "@")
		if !ok {
			break
		}
		start, rest, ok := strings.Cut(rest, "@")
		if !ok {
			break
		}

		set = append(set, Filter{
			Filename:  norm.NFC.String(file),
			StartLine: leadingInt(start),
			EndLine:   leadingInt(rest),
		})

		_, next, ok := strings.Cut(rest, "@")
		if !ok {
			break
		}
		value = next
	}
	return set
}

// Matches reports whether any filter in s matches the location.
func (s Set) Matches(filename string, line int) bool {
	if len(s) == 0 {
		return false
	}
	normalized := norm.NFC.String(filename)
	for _, f := range s {
		if f.IsWildcard() {
			return true
		}
		if strings.Contains(normalized, f.Filename) && line >= f.StartLine && line <= f.EndLine {
			return true
		}
	}
	return false
}

// Empty reports whether s contains no filters.
func (s Set) Empty() bool {
	return len(s) == 0
}

func (s Set) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.String()
	}
	return strings.Join(parts, "@")
}

// leadingInt parses the leading decimal integer of s after optional spaces
// and sign. A field with no digits is 0.
func leadingInt(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}
