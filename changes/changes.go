// Package changes classifies the difference between two scans of the same
// root by joining their file records on relative path.
package changes

import (
	"fmt"
	"sort"

	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/samber/lo"
)

// ChangeSet partitions the union of two snapshots' paths.
// Added, Modified and Unchanged hold the current records; Deleted holds the
// previous ones. Every list is sorted by relative path.
type ChangeSet struct {
	Added      []model.FileRecord `json:"added"`
	Modified   []model.FileRecord `json:"modified"`
	Deleted    []model.FileRecord `json:"deleted"`
	Unchanged  []model.FileRecord `json:"unchanged"`
	HasChanges bool               `json:"hasChanges"`
}

// Counts is the size of each category.
type Counts struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// Detect compares the current snapshot against the previous one.
// A path present in both with a different content hash is modified; size and
// timestamps are never consulted. When a snapshot lists a path more than
// once, its last occurrence wins.
func Detect(current, previous []model.FileRecord) ChangeSet {
	currentByPath := byPath(current)
	previousByPath := byPath(previous)

	var set ChangeSet
	for path, cur := range currentByPath {
		prev, ok := previousByPath[path]
		switch {
		case !ok:
			set.Added = append(set.Added, cur)
		case prev.ContentHash != cur.ContentHash:
			set.Modified = append(set.Modified, cur)
		default:
			set.Unchanged = append(set.Unchanged, cur)
		}
	}
	for path, prev := range previousByPath {
		if _, ok := currentByPath[path]; !ok {
			set.Deleted = append(set.Deleted, prev)
		}
	}

	sortRecords(set.Added)
	sortRecords(set.Modified)
	sortRecords(set.Deleted)
	sortRecords(set.Unchanged)
	set.HasChanges = len(set.Added)+len(set.Modified)+len(set.Deleted) > 0
	return set
}

// AnalysisSet returns the files that need fresh analysis: added then modified,
// sorted by relative path.
func (c ChangeSet) AnalysisSet() []model.FileRecord {
	set := make([]model.FileRecord, 0, len(c.Added)+len(c.Modified))
	set = append(set, c.Added...)
	set = append(set, c.Modified...)
	sortRecords(set)
	return set
}

// Counts returns the number of files per category.
func (c ChangeSet) Counts() Counts {
	return Counts{
		Added:     len(c.Added),
		Modified:  len(c.Modified),
		Deleted:   len(c.Deleted),
		Unchanged: len(c.Unchanged),
	}
}

func (c ChangeSet) String() string {
	return fmt.Sprintf("+%d ~%d -%d =%d", len(c.Added), len(c.Modified), len(c.Deleted), len(c.Unchanged))
}

// Paths returns the relative paths of records.
func Paths(records []model.FileRecord) []string {
	return lo.Map(records, func(r model.FileRecord, _ int) string { return r.RelativePath })
}

func byPath(records []model.FileRecord) map[string]model.FileRecord {
	return lo.SliceToMap(records, func(r model.FileRecord) (string, model.FileRecord) {
		return r.RelativePath, r
	})
}

func sortRecords(records []model.FileRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].RelativePath < records[j].RelativePath
	})
}
