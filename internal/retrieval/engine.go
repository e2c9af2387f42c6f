package retrieval

import (
	"context"
	"strings"

	"legalrecords-assistant/internal/config"
	"legalrecords-assistant/internal/metrics"
	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/platform/logger"
)

type RecordSource interface {
	GetByID(ctx context.Context, id uint) (*model.CaseRecord, error)
	GetByNumber(ctx context.Context, number string) (*model.CaseRecord, error)
	SearchByNumber(ctx context.Context, fragment string, limit int) ([]model.CaseRecord, error)
	SearchByField(ctx context.Context, column, keyword string, limit int) ([]model.CaseRecord, error)
}

type DocumentSource interface {
	ListByRecordID(ctx context.Context, recordID uint) ([]model.Document, error)
	SearchContent(ctx context.Context, keyword string, limit int) ([]model.Document, error)
}

type ReferenceSource interface {
	Columns(ctx context.Context, table string) ([]string, error)
	Search(ctx context.Context, table, column, keyword string, limit int) ([]model.ReferenceRow, error)
}

// Result is everything retrieval found for one query. Any list may be empty.
type Result struct {
	Keywords   []string               `json:"keywords"`
	Anchors    []string               `json:"anchors"`
	Records    []model.CaseRecord     `json:"records"`
	Documents  []model.Document       `json:"documents"`
	References []model.ReferenceMatch `json:"references"`
}

func (r Result) Empty() bool {
	return len(r.Records) == 0 && len(r.Documents) == 0 && len(r.References) == 0
}

func (r Result) RecordNumbers() []string {
	out := make([]string, 0, len(r.Records))
	for _, rec := range r.Records {
		out = append(out, rec.Number)
	}
	return out
}

// Upper bounds on what one query may pull into the prompt. Configuration
// can lower them but not raise them.
const (
	maxRecords      = 5
	maxDocuments    = 7
	maxReferences   = 3
	referenceRowCap = 2
)

// Engine fans a free-text query out over records, documents and the
// regulatory tables. Sub-search failures are logged and skipped; Search
// itself never fails.
type Engine struct {
	records    RecordSource
	documents  DocumentSource
	references ReferenceSource
	cfg        config.RetrievalConfig
	log        *logger.Logger
}

func NewEngine(records RecordSource, documents DocumentSource, references ReferenceSource, cfg config.RetrievalConfig, log *logger.Logger) *Engine {
	cfg.MaxRecords = clampCap(cfg.MaxRecords, maxRecords)
	cfg.MaxDocuments = clampCap(cfg.MaxDocuments, maxDocuments)
	cfg.MaxReferences = clampCap(cfg.MaxReferences, maxReferences)
	cfg.ReferenceRowCap = clampCap(cfg.ReferenceRowCap, referenceRowCap)
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		records:    records,
		documents:  documents,
		references: references,
		cfg:        cfg,
		log:        log,
	}
}

func clampCap(v, limit int) int {
	if v <= 0 || v > limit {
		return limit
	}
	return v
}

func (e *Engine) Search(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}
	}

	res := Result{
		Keywords: ExtractKeywords(query),
		Anchors:  ExtractRecordNumbers(query),
	}
	res.Records = e.searchRecords(ctx, res.Anchors, res.Keywords)
	res.Documents = e.searchDocuments(ctx, res.Records, res.Keywords)
	res.References = e.searchReferences(ctx, res.Keywords)

	metrics.RecordRetrievalSizes(len(res.Records), len(res.Documents), len(res.References))
	e.log.Debug("retrieval finished",
		"keywords", res.Keywords,
		"anchors", res.Anchors,
		"records", len(res.Records),
		"documents", len(res.Documents),
		"references", len(res.References),
	)
	return res
}

// SearchRecords runs only the keyword/field part of the record search.
func (e *Engine) SearchRecords(ctx context.Context, query string) []model.CaseRecord {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return e.searchRecords(ctx, ExtractRecordNumbers(query), ExtractKeywords(query))
}

func (e *Engine) searchRecords(ctx context.Context, anchors, keywords []string) []model.CaseRecord {
	set := newOrderedSet[model.CaseRecord]()

	for _, anchor := range anchors {
		rec, err := e.records.GetByNumber(ctx, anchor)
		if err != nil {
			e.fail("records", err, "anchor", anchor)
		}
		if rec != nil {
			set.put(rec.ID, *rec)
			continue
		}
		found, err := e.records.SearchByNumber(ctx, anchor, e.cfg.SearchLimit)
		if err != nil {
			e.fail("records", err, "column", "numero_expediente", "keyword", anchor)
			continue
		}
		for _, r := range found {
			set.put(r.ID, r)
		}
	}

	for _, kw := range keywords {
		for _, column := range model.RecordSearchColumns {
			found, err := e.records.SearchByField(ctx, column, kw, e.cfg.SearchLimit)
			if err != nil {
				e.fail("records", err, "column", column, "keyword", kw)
				continue
			}
			for _, r := range found {
				set.put(r.ID, r)
			}
		}
	}
	return set.first(e.cfg.MaxRecords)
}

func (e *Engine) searchDocuments(ctx context.Context, records []model.CaseRecord, keywords []string) []model.Document {
	set := newOrderedSet[model.Document]()
	parents := make(map[uint]*model.CaseRecord, len(records))

	for i := range records {
		rec := &records[i]
		parents[rec.ID] = rec
		docs, err := e.documents.ListByRecordID(ctx, rec.ID)
		if err != nil {
			e.fail("documents", err, "record", rec.Number)
			continue
		}
		for _, d := range docs {
			annotate(&d, rec)
			set.put(d.ID, d)
		}
	}

	for _, kw := range keywords {
		docs, err := e.documents.SearchContent(ctx, kw, e.cfg.SearchLimit)
		if err != nil {
			e.fail("documents", err, "column", "contenido", "keyword", kw)
			continue
		}
		for _, d := range docs {
			annotate(&d, e.parentOf(ctx, d.RecordID, parents))
			set.put(d.ID, d)
		}
	}
	return set.first(e.cfg.MaxDocuments)
}

func (e *Engine) parentOf(ctx context.Context, recordID uint, known map[uint]*model.CaseRecord) *model.CaseRecord {
	if rec, ok := known[recordID]; ok {
		return rec
	}
	rec, err := e.records.GetByID(ctx, recordID)
	if err != nil {
		e.fail("documents", err, "record_id", recordID)
	}
	known[recordID] = rec
	return rec
}

func (e *Engine) searchReferences(ctx context.Context, keywords []string) []model.ReferenceMatch {
	if len(keywords) == 0 || e.references == nil {
		return nil
	}
	var out []model.ReferenceMatch
	for _, table := range e.cfg.ReferenceTables {
		columns, err := e.references.Columns(ctx, table)
		if err != nil {
			e.fail("references", err, "table", table)
			continue
		}
		for _, column := range columns {
			if IsBookkeepingColumn(column) {
				continue
			}
			for _, kw := range keywords {
				rows, err := e.references.Search(ctx, table, column, kw, e.cfg.ReferenceRowCap)
				if err != nil {
					e.fail("references", err, "table", table, "column", column, "keyword", kw)
					continue
				}
				if len(rows) == 0 {
					continue
				}
				if len(rows) > e.cfg.ReferenceRowCap {
					rows = rows[:e.cfg.ReferenceRowCap]
				}
				out = append(out, model.ReferenceMatch{Table: table, Column: column, Keyword: kw, Rows: rows})
				if len(out) >= e.cfg.MaxReferences {
					return out
				}
			}
		}
	}
	return out
}

func (e *Engine) fail(source string, err error, keysAndValues ...interface{}) {
	metrics.RecordRetrievalFailure(source)
	kv := append([]interface{}{"source", source, "error", err}, keysAndValues...)
	e.log.Warn("retrieval sub-search failed", kv...)
}

func annotate(doc *model.Document, parent *model.CaseRecord) {
	if parent == nil {
		return
	}
	doc.RecordNumber = parent.Number
	doc.RecordProcessType = parent.ProcessType
}

// IsBookkeepingColumn reports identity and timestamp columns, which are
// neither searched nor shown.
func IsBookkeepingColumn(column string) bool {
	switch strings.ToLower(column) {
	case "id", "created_at", "updated_at":
		return true
	}
	return false
}

// orderedSet keeps the position where an id was first seen and the value it
// was last seen with.
type orderedSet[T any] struct {
	index map[uint]int
	items []T
}

func newOrderedSet[T any]() *orderedSet[T] {
	return &orderedSet[T]{index: make(map[uint]int)}
}

func (s *orderedSet[T]) put(id uint, item T) {
	if i, ok := s.index[id]; ok {
		s.items[i] = item
		return
	}
	s.index[id] = len(s.items)
	s.items = append(s.items, item)
}

func (s *orderedSet[T]) first(n int) []T {
	if len(s.items) > n {
		return s.items[:n]
	}
	return s.items
}
