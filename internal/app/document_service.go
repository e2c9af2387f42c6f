package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/pkg/pdfextract"
	"legalrecords-assistant/internal/repository"
	"legalrecords-assistant/internal/retrieval"
)

// MaxPDFBytes caps uploads accepted by ExtractPDF.
const MaxPDFBytes = 20 << 20

var (
	ErrInvalidDocumentType = errors.New("invalid document type")
	ErrPDFInvalid          = errors.New("file is not a readable pdf")
	ErrPDFEmpty            = errors.New("no text could be extracted from the pdf")
	ErrPDFTooLarge         = errors.New("pdf exceeds the upload limit")
	ErrDocumentNotFound    = errors.New("document not found")
)

type DocumentService struct {
	documentRepo  *repository.DocumentRepository
	recordService *RecordService
}

// ExtractedPDF is the review step of an upload: nothing is stored yet.
type ExtractedPDF struct {
	FileName      string   `json:"nombre_archivo"`
	Pages         int      `json:"paginas"`
	Text          string   `json:"contenido"`
	RecordNumbers []string `json:"expedientes_detectados"`
}

type SaveDocumentInput struct {
	RecordID     uint
	RecordNumber string
	// NewRecord creates the parent when RecordNumber does not exist yet.
	NewRecord *CreateRecordInput
	FileName  string
	Type      string
	Content   string
}

func NewDocumentService(documentRepo *repository.DocumentRepository, recordService *RecordService) *DocumentService {
	return &DocumentService{
		documentRepo:  documentRepo,
		recordService: recordService,
	}
}

func (s *DocumentService) ExtractPDF(ctx context.Context, fileName string, data []byte) (*ExtractedPDF, error) {
	if len(data) == 0 {
		return nil, ErrInvalidInput
	}
	if len(data) > MaxPDFBytes {
		return nil, ErrPDFTooLarge
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := pdfextract.Extract(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFInvalid, err)
	}
	if res.Text == "" {
		return nil, ErrPDFEmpty
	}
	return &ExtractedPDF{
		FileName:      strings.TrimSpace(fileName),
		Pages:         res.Pages,
		Text:          res.Text,
		RecordNumbers: retrieval.ExtractRecordNumbers(res.Text),
	}, nil
}

func (s *DocumentService) Save(ctx context.Context, input SaveDocumentInput) (*model.Document, error) {
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" || strings.TrimSpace(input.Content) == "" {
		return nil, ErrInvalidInput
	}
	if !model.IsValidDocumentType(input.Type) {
		return nil, ErrInvalidDocumentType
	}

	parent, isNew, err := s.resolveParent(ctx, input)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		RecordID: parent.ID,
		FileName: fileName,
		Type:     input.Type,
		Content:  input.Content,
	}
	if isNew {
		err = s.documentRepo.CreateWithRecord(ctx, parent, doc)
	} else {
		err = s.documentRepo.Create(ctx, doc)
	}
	if err != nil {
		return nil, err
	}
	doc.RecordNumber = parent.Number
	doc.RecordProcessType = parent.ProcessType
	return doc, nil
}

// resolveParent finds the parent by id or number. When the number is unknown
// and NewRecord is set it returns an unsaved record and isNew.
func (s *DocumentService) resolveParent(ctx context.Context, input SaveDocumentInput) (*model.CaseRecord, bool, error) {
	if input.RecordID != 0 {
		record, err := s.recordService.GetByID(ctx, input.RecordID)
		return record, false, err
	}

	number := strings.TrimSpace(input.RecordNumber)
	if number == "" && input.NewRecord != nil {
		number = input.NewRecord.Number
	}
	if number == "" {
		return nil, false, ErrInvalidInput
	}

	record, err := s.recordService.GetByNumber(ctx, number)
	if err == nil {
		return record, false, nil
	}
	if !errors.Is(err, ErrRecordNotFound) || input.NewRecord == nil {
		return nil, false, err
	}
	create := *input.NewRecord
	create.Number = number
	record, err = s.recordService.prepare(ctx, create)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

func (s *DocumentService) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) ListByRecord(ctx context.Context, number string) ([]model.Document, error) {
	detail, err := s.recordService.Lookup(ctx, number)
	if err != nil {
		return nil, err
	}
	return detail.Documents, nil
}

// SearchByType lists documents whose type contains docType.
func (s *DocumentService) SearchByType(ctx context.Context, docType string) ([]model.Document, error) {
	docType = strings.TrimSpace(docType)
	if docType == "" {
		return nil, ErrInvalidInput
	}
	docs, err := s.documentRepo.SearchByType(ctx, docType, 0)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return docs, nil
}
