package ignore

// PrunedDirectories are directory names that are never descended into.
// Walking into any of them is expensive and never yields analyzable sources
// that belong to the project.
var PrunedDirectories = map[string]struct{}{
	// Version control
	".git": {},
	".svn": {},
	".hg":  {},
	".bzr": {},

	// Dependencies
	"node_modules":     {},
	"bower_components": {},
	"vendor":           {},
	".npm":             {},
	".yarn":            {},
	".pnpm-store":      {},
	"__pycache__":      {},
	".venv":            {},
	"venv":             {},
	".tox":             {},
	".mypy_cache":      {},
	".pytest_cache":    {},
	".gradle":          {},
	".cargo":           {},

	// Build output
	"dist":   {},
	"build":  {},
	"out":    {},
	"target": {},
	"bin":    {},
	"obj":    {},
	".next":  {},
	".nuxt":  {},

	// Caches and coverage
	".cache":        {},
	".parcel-cache": {},
	"coverage":      {},
	".nyc_output":   {},
	"htmlcov":       {},

	// IDE / Editor
	".idea":   {},
	".vscode": {},
	".vs":     {},
}

// IsPrunedDir reports whether a directory with this base name is skipped
// without descending.
func IsPrunedDir(name string) bool {
	_, ok := PrunedDirectories[name]
	return ok
}
