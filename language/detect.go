package language

import (
	"path/filepath"
	"sort"
	"strings"
)

// ExtensionToLanguage maps analyzable file extensions (without dot) to language names.
// Only languages the metric analyzer understands are listed; everything else is
// skipped by the scanner.
var ExtensionToLanguage = map[string]string{
	// C / C++
	"c": "C", "h": "C",
	"cpp": "C++", "cc": "C++", "cxx": "C++", "hpp": "C++", "hxx": "C++", "hh": "C++",
	// C#
	"cs": "C#",
	// Java / Kotlin / Scala
	"java": "Java", "kt": "Kotlin", "kts": "Kotlin", "scala": "Scala",
	// JavaScript / TypeScript
	"js": "JavaScript", "jsx": "JavaScript", "mjs": "JavaScript", "cjs": "JavaScript",
	"ts": "TypeScript", "tsx": "TypeScript", "mts": "TypeScript", "cts": "TypeScript",
	"vue": "Vue",
	// Python
	"py": "Python", "pyw": "Python",
	// Go
	"go": "Go",
	// Rust
	"rs": "Rust",
	// Ruby
	"rb": "Ruby",
	// PHP
	"php": "PHP",
	// Swift / Objective-C
	"swift": "Swift", "m": "Objective-C", "mm": "Objective-C",
	// Lua
	"lua": "Lua",
	// Erlang
	"erl": "Erlang", "hrl": "Erlang",
	// Fortran
	"f": "Fortran", "for": "Fortran", "f77": "Fortran", "f90": "Fortran", "f95": "Fortran", "f03": "Fortran", "f08": "Fortran",
	// Solidity
	"sol": "Solidity",
	// Zig
	"zig": "Zig",
	// Perl
	"pl": "Perl", "pm": "Perl",
	// GDScript
	"gd": "GDScript",
}

// Extension returns the lower-cased extension of a path without the leading dot.
func Extension(filePath string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
}

// DetectLanguage returns the programming language for a file path based on its extension.
// Returns "Unknown" if the extension is not analyzable.
func DetectLanguage(filePath string) string {
	if lang, ok := ExtensionToLanguage[Extension(filePath)]; ok {
		return lang
	}
	return "Unknown"
}

// IsAnalyzable reports whether the file's extension belongs to a supported language.
func IsAnalyzable(filePath string) bool {
	_, ok := ExtensionToLanguage[Extension(filePath)]
	return ok
}

// SupportedExtensions returns all analyzable extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(ExtensionToLanguage))
	for ext := range ExtensionToLanguage {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
