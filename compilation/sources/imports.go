package sources

import (
	"regexp"
	"strings"
)

// importPattern matches the quoted path of the plain, aliased, wildcard and symbol-list import forms:
//
//	import "A.sol";
//	import "A.sol" as A;
//	import * as A from "A.sol";
//	import {A, B as C} from "A.sol";
var importPattern = regexp.MustCompile(`\bimport\s+(?:[^;'"]*?\bfrom\s+)?["']([^"']+)["']`)

// ExtractImports returns the import specifiers of a source in order of appearance, skipping duplicates. Comments are
// removed first so commented-out imports are not reported.
func ExtractImports(source string) []string {
	matches := importPattern.FindAllStringSubmatch(StripComments(source), -1)
	specifiers := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		if _, ok := seen[match[1]]; ok {
			continue
		}
		seen[match[1]] = struct{}{}
		specifiers = append(specifiers, match[1])
	}
	return specifiers
}

// StripComments replaces line and block comments with spaces, keeping newlines so offsets and line numbers are
// unchanged. Comment markers inside string literals are left alone.
func StripComments(source string) string {
	var b strings.Builder
	b.Grow(len(source))

	const (
		code = iota
		lineComment
		blockComment
		stringLiteral
	)
	state := code
	var quote byte

	for i := 0; i < len(source); i++ {
		c := source[i]
		var next byte
		if i+1 < len(source) {
			next = source[i+1]
		}

		switch state {
		case code:
			if c == '/' && next == '/' {
				state = lineComment
				b.WriteString("  ")
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = blockComment
				b.WriteString("  ")
				i++
				continue
			}
			if c == '"' || c == '\'' {
				state = stringLiteral
				quote = c
			}
			b.WriteByte(c)
		case lineComment:
			if c == '\n' {
				state = code
				b.WriteByte(c)
			} else {
				b.WriteByte(' ')
			}
		case blockComment:
			if c == '*' && next == '/' {
				state = code
				b.WriteString("  ")
				i++
				continue
			}
			if c == '\n' {
				b.WriteByte(c)
			} else {
				b.WriteByte(' ')
			}
		case stringLiteral:
			b.WriteByte(c)
			if c == '\\' && next != 0 {
				b.WriteByte(next)
				i++
			} else if c == quote || c == '\n' {
				state = code
			}
		}
	}
	return b.String()
}
