// Package filter parses source-location filter specifications and matches
// source locations against them.
//
// A specification is either the wildcard "*" or a sequence of triples:
//
//	file@startLine@endLine[@file@startLine@endLine...]
//
// A location matches a set when any filter is the wildcard, or when the
// location's filename contains the filter's filename and its line lies within
// [startLine, endLine] inclusive.
//
// Parsing is lenient: line numbers take the leading decimal prefix of their
// field (so "12abc" is 12 and "abc" is 0), and a trailing file name without
// both '@' separators is ignored. Filenames are compared in Unicode NFC form.
package filter
