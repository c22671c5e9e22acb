package index

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/aMonteSl/codexr-mcp/watcher"
)

// DefaultMaxResults caps query results when no limit is given.
const DefaultMaxResults = 50

// MetricsIndex is an in-memory Bleve index over the files of every analyzed root.
// It is kept current by applying cycle events rather than rebuilt per cycle.
type MetricsIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	// roots holds the indexed metrics per root, keyed by relative path.
	// A root present here has been fully indexed at least once.
	roots map[string]map[string]model.FileMetrics
}

// NewMetricsIndex creates an empty in-memory metrics index.
func NewMetricsIndex() (*MetricsIndex, error) {
	bleveIndex, err := bleve.NewMemOnly(buildMetricsMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &MetricsIndex{
		index: bleveIndex,
		roots: make(map[string]map[string]model.FileMetrics),
	}, nil
}

// metricsDocument is the document structure stored in Bleve.
type metricsDocument struct {
	Root          string  `json:"root"`
	Path          string  `json:"path"`
	Language      string  `json:"language"`
	Complexity    float64 `json:"complexity"`
	MaxComplexity float64 `json:"maxComplexity"`
	Lines         float64 `json:"lines"`
	Functions     float64 `json:"functions"`
}

func buildMetricsMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	for _, field := range []string{"root", "path", "language"} {
		keyword := bleve.NewKeywordFieldMapping()
		keyword.Store = false
		keyword.IncludeInAll = false
		docMapping.AddFieldMappingsAt(field, keyword)
	}
	for _, field := range []string{"complexity", "maxComplexity", "lines", "functions"} {
		numeric := bleve.NewNumericFieldMapping()
		numeric.Store = false
		numeric.IncludeInAll = false
		docMapping.AddFieldMappingsAt(field, numeric)
	}

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func documentID(root, relativePath string) string {
	return root + "\x00" + relativePath
}

func newDocument(root string, file model.FileMetrics) metricsDocument {
	return metricsDocument{
		Root:          root,
		Path:          file.RelativePath,
		Language:      file.Language,
		Complexity:    file.AverageComplexity,
		MaxComplexity: float64(file.MaxComplexity),
		Lines:         float64(file.TotalLines),
		Functions:     float64(file.FunctionCount),
	}
}

// Apply brings the index in line with a completed cycle. An initial cycle, or
// the first event seen for a root, replaces everything indexed for that root;
// later cycles apply only the reported change set. Failed and no-op cycles
// leave the index untouched.
func (mi *MetricsIndex) Apply(event watcher.CycleEvent) error {
	if event.Err != nil || event.Result == nil {
		return nil
	}
	root := event.Result.DirectoryPath
	if root == "" {
		root = event.Root
	}

	mi.mu.Lock()
	defer mi.mu.Unlock()

	files, indexed := mi.roots[root]
	if event.Changes == nil || !indexed {
		return mi.reindexRoot(root, event.Result)
	}
	if !event.HasChanges {
		return nil
	}

	batch := mi.index.NewBatch()
	for _, deleted := range event.Changes.Deleted {
		batch.Delete(documentID(root, deleted.RelativePath))
		delete(files, deleted.RelativePath)
	}
	for _, record := range event.Changes.AnalysisSet() {
		id := documentID(root, record.RelativePath)
		metrics, ok := event.Result.File(record.RelativePath)
		if !ok {
			// Analysis failed and the file was left out of the result.
			batch.Delete(id)
			delete(files, record.RelativePath)
			continue
		}
		if err := batch.Index(id, newDocument(root, metrics)); err != nil {
			return fmt.Errorf("indexing %s: %w", record.RelativePath, err)
		}
		files[record.RelativePath] = metrics
	}
	if err := mi.index.Batch(batch); err != nil {
		return fmt.Errorf("applying changes for %s: %w", root, err)
	}
	return nil
}

// reindexRoot must be called with mu held.
func (mi *MetricsIndex) reindexRoot(root string, result *model.DirectoryAnalysisResult) error {
	batch := mi.index.NewBatch()
	for path := range mi.roots[root] {
		batch.Delete(documentID(root, path))
	}

	files := make(map[string]model.FileMetrics, len(result.Files))
	for _, file := range result.Files {
		if err := batch.Index(documentID(root, file.RelativePath), newDocument(root, file)); err != nil {
			return fmt.Errorf("indexing %s: %w", file.RelativePath, err)
		}
		files[file.RelativePath] = file
	}
	if err := mi.index.Batch(batch); err != nil {
		return fmt.Errorf("reindexing %s: %w", root, err)
	}
	mi.roots[root] = files
	return nil
}

// RemoveRoot drops every document of a root.
func (mi *MetricsIndex) RemoveRoot(root string) error {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	files, ok := mi.roots[root]
	if !ok {
		return nil
	}
	batch := mi.index.NewBatch()
	for path := range files {
		batch.Delete(documentID(root, path))
	}
	if err := mi.index.Batch(batch); err != nil {
		return fmt.Errorf("removing %s from index: %w", root, err)
	}
	delete(mi.roots, root)
	return nil
}

// QueryOptions configures a metrics query. Zero values leave a filter unset.
type QueryOptions struct {
	Root          string
	Language      string
	MinComplexity float64
	MaxComplexity float64
	MinLines      int
	MaxResults    int
}

// QueryHit is one file matched by a query.
type QueryHit struct {
	Root string
	File model.FileMetrics
}

// Query returns files matching the options, most complex first, together with
// the total number of matches before MaxResults was applied.
func (mi *MetricsIndex) Query(options QueryOptions) ([]QueryHit, uint64, error) {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	if options.MaxResults <= 0 {
		options.MaxResults = DefaultMaxResults
	}

	searchRequest := bleve.NewSearchRequest(buildMetricsQuery(options))
	searchRequest.Size = options.MaxResults
	searchRequest.SortBy([]string{"-complexity", "_id"})

	searchResults, err := mi.index.Search(searchRequest)
	if err != nil {
		return nil, 0, fmt.Errorf("searching index: %w", err)
	}

	hits := make([]QueryHit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		root, path, ok := splitDocumentID(hit.ID)
		if !ok {
			continue
		}
		file, ok := mi.roots[root][path]
		if !ok {
			continue
		}
		hits = append(hits, QueryHit{Root: root, File: file})
	}
	return hits, searchResults.Total, nil
}

func buildMetricsQuery(options QueryOptions) query.Query {
	var conjuncts []query.Query

	if options.Root != "" {
		q := bleve.NewTermQuery(options.Root)
		q.SetField("root")
		conjuncts = append(conjuncts, q)
	}
	if options.Language != "" {
		q := bleve.NewTermQuery(options.Language)
		q.SetField("language")
		conjuncts = append(conjuncts, q)
	}
	if options.MinComplexity > 0 || options.MaxComplexity > 0 {
		conjuncts = append(conjuncts, numericRange("complexity", options.MinComplexity, options.MaxComplexity))
	}
	if options.MinLines > 0 {
		conjuncts = append(conjuncts, numericRange("lines", float64(options.MinLines), 0))
	}

	if len(conjuncts) == 0 {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewConjunctionQuery(conjuncts...)
}

// numericRange builds an inclusive range; a zero bound is left open.
func numericRange(field string, lower, upper float64) query.Query {
	inclusive := true
	var minPtr, maxPtr *float64
	if lower > 0 {
		minPtr = &lower
	}
	if upper > 0 {
		maxPtr = &upper
	}
	q := bleve.NewNumericRangeInclusiveQuery(minPtr, maxPtr, &inclusive, &inclusive)
	q.SetField(field)
	return q
}

func splitDocumentID(id string) (root, path string, ok bool) {
	return strings.Cut(id, "\x00")
}

// Files returns the indexed metrics of a root, sorted by relative path.
func (mi *MetricsIndex) Files(root string) []model.FileMetrics {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	files := make([]model.FileMetrics, 0, len(mi.roots[root]))
	for _, file := range mi.roots[root] {
		files = append(files, file)
	}
	model.SortFiles(files)
	return files
}

// DocumentCount returns the number of documents in the Bleve index.
func (mi *MetricsIndex) DocumentCount() uint64 {
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	count, _ := mi.index.DocCount()
	return count
}

// Close closes the Bleve index.
func (mi *MetricsIndex) Close() error {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.index.Close()
}
