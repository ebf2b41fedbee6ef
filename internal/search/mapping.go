package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for idea documents:
// stemmed text on title and description, simple analysis on author names,
// keyword fields for category and tag filters, numerics for sorting.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = en.AnalyzerName
	title.Store = true
	title.IncludeTermVectors = true // highlighting
	doc.AddFieldMappingsAt("title", title)

	// Too large to store; results carry the title only.
	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = en.AnalyzerName
	desc.Store = false
	desc.IncludeTermVectors = true
	doc.AddFieldMappingsAt("description", desc)

	author := bleve.NewTextFieldMapping()
	author.Analyzer = simple.Name
	author.Store = true
	doc.AddFieldMappingsAt("author", author)

	for _, name := range []string{"id", "category", "tags"} {
		kw := bleve.NewTextFieldMapping()
		kw.Analyzer = keyword.Name
		kw.Store = name != "id"
		doc.AddFieldMappingsAt(name, kw)
	}

	for _, name := range []string{"rating", "favorites", "created_at"} {
		num := bleve.NewNumericFieldMapping()
		num.Store = true
		doc.AddFieldMappingsAt(name, num)
	}

	indexMapping.AddDocumentMapping("_default", doc)
	return indexMapping
}
