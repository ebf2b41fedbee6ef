package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// Index wraps a Bleve index of ideas. All methods are safe for concurrent
// use; Rebuild takes the write lock.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	// DataPath is the directory holding the index. Empty keeps the index
	// in memory.
	DataPath string
	Logger   *slog.Logger
}

// mappingVersion is bumped whenever the mapping changes; a mismatch on
// open forces a rebuild.
const mappingVersion = "1"

// Open creates or opens an index. A corrupt index or one written with an
// older mapping is removed and recreated empty.
func Open(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.DataPath == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &Index{index: idx, logger: logger}, nil
	}

	indexPath := filepath.Join(opts.DataPath, "ideas.bleve")
	versionPath := filepath.Join(opts.DataPath, "ideas.version")

	var idx bleve.Index
	if _, err := os.Stat(indexPath); err == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil || string(existing) != mappingVersion:
			logger.Info("search mapping changed, rebuilding",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
		default:
			idx, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
				idx = nil
			}
		}
		if idx == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if idx == nil {
		var err error
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)
	}

	return &Index{index: idx, path: indexPath, logger: logger}, nil
}

// Close releases the index.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Put indexes or replaces one document.
func (s *Index) Put(doc *IdeaDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// PutAll indexes documents in batches of 500.
func (s *Index) PutAll(docs []*IdeaDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Delete removes a document.
func (s *Index) Delete(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// Count returns the number of indexed documents.
func (s *Index) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document. In-memory indexes are replaced in place.
func (s *Index) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		idx bleve.Index
		err error
	)
	if s.path == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		idx, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = idx
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}
