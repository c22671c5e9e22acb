package analyzer

import (
	"strings"
)

type blockComment struct {
	start, end string
}

type commentSyntax struct {
	line   []string
	blocks []blockComment
}

var (
	cStyle      = commentSyntax{line: []string{"//"}, blocks: []blockComment{{"/*", "*/"}}}
	hashStyle   = commentSyntax{line: []string{"#"}}
	pythonStyle = commentSyntax{line: []string{"#"}, blocks: []blockComment{{`"""`, `"""`}, {"'''", "'''"}}}
)

var commentSyntaxByLanguage = map[string]commentSyntax{
	"C":           cStyle,
	"C++":         cStyle,
	"C#":          cStyle,
	"Java":        cStyle,
	"Kotlin":      cStyle,
	"Scala":       cStyle,
	"JavaScript":  cStyle,
	"TypeScript":  cStyle,
	"Vue":         {line: []string{"//"}, blocks: []blockComment{{"/*", "*/"}, {"<!--", "-->"}}},
	"Go":          cStyle,
	"Rust":        cStyle,
	"Swift":       cStyle,
	"Objective-C": cStyle,
	"Solidity":    cStyle,
	"Zig":         {line: []string{"//"}},
	"PHP":         {line: []string{"//", "#"}, blocks: []blockComment{{"/*", "*/"}}},
	"Python":      pythonStyle,
	"Ruby":        {line: []string{"#"}, blocks: []blockComment{{"=begin", "=end"}}},
	"Perl":        {line: []string{"#"}, blocks: []blockComment{{"=pod", "=cut"}, {"=head", "=cut"}}},
	"Lua":         {line: []string{"--"}, blocks: []blockComment{{"--[[", "]]"}}},
	"Erlang":      {line: []string{"%"}},
	"Fortran":     {line: []string{"!"}},
	"GDScript":    hashStyle,
}

type lineKind int

const (
	lineBlank lineKind = iota
	lineCode
	lineComment
)

// splitLines splits source text into lines without a trailing empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return strings.Split(text, "\n")
}

// classifyLines labels every line as blank, code or comment. A line holding
// both code and a trailing comment counts as code.
func classifyLines(lines []string, syntax commentSyntax) []lineKind {
	kinds := make([]lineKind, len(lines))
	var open *blockComment

	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)

		if open != nil {
			kinds[i] = lineComment
			if strings.Contains(trimmed, open.end) {
				open = nil
			}
			continue
		}
		if trimmed == "" {
			kinds[i] = lineBlank
			continue
		}

		if b, ok := startsBlock(trimmed, syntax.blocks); ok {
			kinds[i] = lineComment
			if !strings.Contains(trimmed[len(b.start):], b.end) {
				open = &b
			}
			continue
		}
		if hasAnyPrefix(trimmed, syntax.line) {
			kinds[i] = lineComment
			continue
		}

		kinds[i] = lineCode
		for _, b := range syntax.blocks {
			idx := strings.Index(trimmed, b.start)
			if idx > 0 && !strings.Contains(trimmed[idx+len(b.start):], b.end) && !inLineComment(trimmed, idx, syntax.line) {
				open = &b
				break
			}
		}
	}
	return kinds
}

func startsBlock(trimmed string, blocks []blockComment) (blockComment, bool) {
	for _, b := range blocks {
		if strings.HasPrefix(trimmed, b.start) {
			return b, true
		}
	}
	return blockComment{}, false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// inLineComment reports whether position idx lies after a line comment marker.
func inLineComment(s string, idx int, markers []string) bool {
	for _, m := range markers {
		if j := strings.Index(s, m); j >= 0 && j < idx {
			return true
		}
	}
	return false
}

type lineCounts struct {
	total, code, comment, blank int
}

func tally(kinds []lineKind) lineCounts {
	counts := lineCounts{total: len(kinds)}
	for _, k := range kinds {
		switch k {
		case lineBlank:
			counts.blank++
		case lineCode:
			counts.code++
		case lineComment:
			counts.comment++
		}
	}
	return counts
}
