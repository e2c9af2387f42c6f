package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrecords-assistant/internal/config"
	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/platform/logger"
)

type fakeRecords struct {
	byNumber map[string]model.CaseRecord
	byField  map[string][]model.CaseRecord // key: column + "|" + keyword
	failOn   map[string]bool               // column name
	calls    int
}

func (f *fakeRecords) GetByID(_ context.Context, id uint) (*model.CaseRecord, error) {
	f.calls++
	for _, r := range f.byNumber {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	for _, list := range f.byField {
		for _, r := range list {
			if r.ID == id {
				rec := r
				return &rec, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeRecords) GetByNumber(_ context.Context, number string) (*model.CaseRecord, error) {
	f.calls++
	if r, ok := f.byNumber[number]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeRecords) SearchByNumber(ctx context.Context, fragment string, limit int) ([]model.CaseRecord, error) {
	return f.SearchByField(ctx, "numero_expediente", fragment, limit)
}

func (f *fakeRecords) SearchByField(_ context.Context, column, keyword string, limit int) ([]model.CaseRecord, error) {
	f.calls++
	if f.failOn[column] {
		return nil, errors.New("column does not exist")
	}
	list := f.byField[column+"|"+keyword]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

type fakeDocuments struct {
	byRecord  map[uint][]model.Document
	byContent map[string][]model.Document
	calls     int
}

func (f *fakeDocuments) ListByRecordID(_ context.Context, recordID uint) ([]model.Document, error) {
	f.calls++
	return f.byRecord[recordID], nil
}

func (f *fakeDocuments) SearchContent(_ context.Context, keyword string, _ int) ([]model.Document, error) {
	f.calls++
	return f.byContent[keyword], nil
}

type fakeReferences struct {
	columns map[string][]string
	rows    map[string][]model.ReferenceRow // key: table + "|" + column + "|" + keyword
	broken  map[string]bool
	calls   int
}

func (f *fakeReferences) Columns(_ context.Context, table string) ([]string, error) {
	f.calls++
	if f.broken[table] {
		return nil, errors.New("permission denied")
	}
	return f.columns[table], nil
}

func (f *fakeReferences) Search(_ context.Context, table, column, keyword string, _ int) ([]model.ReferenceRow, error) {
	f.calls++
	return f.rows[table+"|"+column+"|"+keyword], nil
}

func newTestEngine(records *fakeRecords, docs *fakeDocuments, refs *fakeReferences, tables ...string) *Engine {
	cfg := config.RetrievalConfig{
		MaxRecords:      5,
		MaxDocuments:    7,
		MaxReferences:   3,
		SearchLimit:     10,
		ReferenceRowCap: 2,
		ReferenceTables: tables,
	}
	return NewEngine(records, docs, refs, cfg, logger.NewNop())
}

func TestEngine_BlankQueryTouchesNothing(t *testing.T) {
	records := &fakeRecords{}
	docs := &fakeDocuments{}
	refs := &fakeReferences{}
	engine := newTestEngine(records, docs, refs, "normativa_articulos")

	res := engine.Search(context.Background(), "   ")

	assert.True(t, res.Empty())
	assert.Zero(t, records.calls)
	assert.Zero(t, docs.calls)
	assert.Zero(t, refs.calls)
}

func TestEngine_AnchorFirstThenKeywordsDeduplicated(t *testing.T) {
	anchor := model.CaseRecord{ID: 1, Number: "2024-ABC-XYZ-0001", ProcessType: "Licitación"}
	other := model.CaseRecord{ID: 2, Number: "2024-ABC-XYZ-0002", MainTopic: "contrato de limpieza"}
	anchorUpdated := anchor
	anchorUpdated.Status = model.StatusArchived

	records := &fakeRecords{
		byNumber: map[string]model.CaseRecord{anchor.Number: anchor},
		byField: map[string][]model.CaseRecord{
			"tema_principal|contrato": {other, anchorUpdated},
		},
	}
	engine := newTestEngine(records, &fakeDocuments{}, &fakeReferences{})

	res := engine.Search(context.Background(), "contrato del expediente 2024-abc-xyz-0001")

	require.Len(t, res.Records, 2)
	assert.Equal(t, uint(1), res.Records[0].ID)
	assert.Equal(t, model.StatusArchived, res.Records[0].Status)
	assert.Equal(t, uint(2), res.Records[1].ID)
	assert.Equal(t, []string{"2024-ABC-XYZ-0001"}, res.Anchors)
}

func TestEngine_RecordCapAndFailureAbsorption(t *testing.T) {
	var many []model.CaseRecord
	for i := 1; i <= 8; i++ {
		many = append(many, model.CaseRecord{ID: uint(i), Number: fmt.Sprintf("2024-ABC-XYZ-%04d", i)})
	}
	records := &fakeRecords{
		byField: map[string][]model.CaseRecord{"area_solicitante|logística": many},
		failOn:  map[string]bool{"seccion": true, "tipo_proceso": true},
	}
	engine := newTestEngine(records, &fakeDocuments{}, &fakeReferences{})

	res := engine.Search(context.Background(), "logística")

	require.Len(t, res.Records, 5)
	for i, rec := range res.Records {
		assert.Equal(t, uint(i+1), rec.ID)
	}
}

func TestNewEngine_CapsCannotBeRaised(t *testing.T) {
	engine := NewEngine(&fakeRecords{}, &fakeDocuments{}, &fakeReferences{}, config.RetrievalConfig{
		MaxRecords:      50,
		MaxDocuments:    70,
		MaxReferences:   30,
		ReferenceRowCap: 20,
	}, nil)

	assert.Equal(t, 5, engine.cfg.MaxRecords)
	assert.Equal(t, 7, engine.cfg.MaxDocuments)
	assert.Equal(t, 3, engine.cfg.MaxReferences)
	assert.Equal(t, 2, engine.cfg.ReferenceRowCap)
	assert.Equal(t, 10, engine.cfg.SearchLimit)

	lowered := NewEngine(&fakeRecords{}, &fakeDocuments{}, &fakeReferences{}, config.RetrievalConfig{MaxRecords: 2, MaxDocuments: -1}, nil)
	assert.Equal(t, 2, lowered.cfg.MaxRecords)
	assert.Equal(t, 7, lowered.cfg.MaxDocuments)
}

func TestEngine_DocumentsAnnotatedMergedAndCapped(t *testing.T) {
	rec := model.CaseRecord{ID: 1, Number: "2024-ABC-XYZ-0001", ProcessType: "Licitación"}
	outside := model.CaseRecord{ID: 9, Number: "2023-DEF-GHI-0009", ProcessType: "Concurso"}
	records := &fakeRecords{
		byNumber: map[string]model.CaseRecord{rec.Number: rec, outside.Number + "-unused": outside},
	}
	var content []model.Document
	for i := 3; i <= 10; i++ {
		content = append(content, model.Document{ID: uint(i), RecordID: 9, FileName: fmt.Sprintf("doc%d.pdf", i)})
	}
	docs := &fakeDocuments{
		byRecord: map[uint][]model.Document{
			1: {{ID: 1, RecordID: 1, FileName: "a.pdf"}, {ID: 2, RecordID: 1, FileName: "b.pdf"}},
		},
		byContent: map[string][]model.Document{
			"penalidad": append([]model.Document{{ID: 2, RecordID: 1, FileName: "b-updated.pdf"}}, content...),
		},
	}
	engine := newTestEngine(records, docs, &fakeReferences{})

	res := engine.Search(context.Background(), "penalidad 2024-ABC-XYZ-0001")

	require.Len(t, res.Documents, 7)
	assert.Equal(t, uint(1), res.Documents[0].ID)
	assert.Equal(t, "2024-ABC-XYZ-0001", res.Documents[0].RecordNumber)
	assert.Equal(t, "Licitación", res.Documents[0].RecordProcessType)
	assert.Equal(t, "b-updated.pdf", res.Documents[1].FileName)
	assert.Equal(t, "2023-DEF-GHI-0009", res.Documents[2].RecordNumber)
	assert.Equal(t, "Concurso", res.Documents[2].RecordProcessType)
}

func TestEngine_ReferencesBounded(t *testing.T) {
	row := func(v string) model.ReferenceRow {
		return model.ReferenceRow{{Name: "id", Value: int64(1)}, {Name: "texto", Value: v}}
	}
	refs := &fakeReferences{
		columns: map[string][]string{
			"normativa_articulos": {"id", "texto", "created_at"},
			"normativa_numerales": {"id", "texto"},
		},
		rows: map[string][]model.ReferenceRow{
			"normativa_articulos|texto|plazo":    {row("a"), row("b"), row("c")},
			"normativa_articulos|texto|contrato": {row("d")},
			"normativa_numerales|texto|plazo":    {row("e")},
			"normativa_numerales|texto|contrato": {row("f")},
		},
		broken: map[string]bool{"normativa_anexos": true},
	}
	engine := newTestEngine(&fakeRecords{}, &fakeDocuments{}, refs,
		"normativa_anexos", "normativa_inexistente", "normativa_articulos", "normativa_numerales")

	res := engine.Search(context.Background(), "plazo contrato")

	require.Len(t, res.References, 3)
	assert.Equal(t, "normativa_articulos", res.References[0].Table)
	assert.Equal(t, "plazo", res.References[0].Keyword)
	assert.Len(t, res.References[0].Rows, 2)
	assert.Equal(t, "contrato", res.References[1].Keyword)
	assert.Equal(t, "normativa_numerales", res.References[2].Table)
	assert.Equal(t, "plazo", res.References[2].Keyword)
}

func TestEngine_NothingFound(t *testing.T) {
	engine := newTestEngine(&fakeRecords{}, &fakeDocuments{}, &fakeReferences{}, "normativa_articulos")

	res := engine.Search(context.Background(), "jurisprudencia marciana")

	assert.True(t, res.Empty())
	assert.Equal(t, []string{"jurisprudencia", "marciana"}, res.Keywords)
	assert.Empty(t, res.RecordNumbers())
}
