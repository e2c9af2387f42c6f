package app

import (
	"context"
	"errors"
	"strings"

	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/repository"
)

var (
	ErrRecordNotFound      = errors.New("case record not found")
	ErrRecordExists        = errors.New("case record number already exists")
	ErrInvalidRecordNumber = errors.New("case record number must look like 2024-ABC-XYZ-0001")
	ErrInvalidStatus       = errors.New("invalid case record status")
)

// RecordSearcher runs the keyword part of retrieval over case records.
type RecordSearcher interface {
	SearchRecords(ctx context.Context, query string) []model.CaseRecord
}

type RecordService struct {
	recordRepo   *repository.CaseRecordRepository
	documentRepo *repository.DocumentRepository
	searcher     RecordSearcher
}

type CreateRecordInput struct {
	Number         string `json:"numero_expediente"`
	CreationDate   string `json:"fecha_creacion"`
	ProcessType    string `json:"tipo_proceso"`
	Modality       string `json:"modalidad"`
	Section        string `json:"seccion"`
	MainTopic      string `json:"tema_principal"`
	RequestingArea string `json:"area_solicitante"`
	Status         string `json:"estado"`
}

// UpdateRecordInput carries the fields to change; nil means keep.
type UpdateRecordInput struct {
	Number         *string `json:"numero_expediente"`
	CreationDate   *string `json:"fecha_creacion"`
	ProcessType    *string `json:"tipo_proceso"`
	Modality       *string `json:"modalidad"`
	Section        *string `json:"seccion"`
	MainTopic      *string `json:"tema_principal"`
	RequestingArea *string `json:"area_solicitante"`
	Status         *string `json:"estado"`
}

// RecordDetail is a record with its attached documents.
type RecordDetail struct {
	Record    *model.CaseRecord `json:"expediente"`
	Documents []model.Document  `json:"documentos"`
}

func NewRecordService(
	recordRepo *repository.CaseRecordRepository,
	documentRepo *repository.DocumentRepository,
	searcher RecordSearcher,
) *RecordService {
	return &RecordService{
		recordRepo:   recordRepo,
		documentRepo: documentRepo,
		searcher:     searcher,
	}
}

func (s *RecordService) GetByID(ctx context.Context, id uint) (*model.CaseRecord, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	record, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

func (s *RecordService) GetByNumber(ctx context.Context, number string) (*model.CaseRecord, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrInvalidInput
	}
	record, err := s.recordRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

func (s *RecordService) Search(ctx context.Context, query string) ([]model.CaseRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	records := s.searcher.SearchRecords(ctx, query)
	if records == nil {
		records = []model.CaseRecord{}
	}
	return records, nil
}

// Create copies only the known fields, upper-cases the number and defaults
// the status to Activo.
func (s *RecordService) Create(ctx context.Context, input CreateRecordInput) (*model.CaseRecord, error) {
	record, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.recordRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// prepare validates input and builds the record without storing it.
func (s *RecordService) prepare(ctx context.Context, input CreateRecordInput) (*model.CaseRecord, error) {
	number, err := s.normalizeNumber(input.Number)
	if err != nil {
		return nil, err
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = model.StatusActive
	}
	if !model.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	existing, err := s.recordRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRecordExists
	}

	return &model.CaseRecord{
		Number:         number,
		CreationDate:   strings.TrimSpace(input.CreationDate),
		ProcessType:    strings.TrimSpace(input.ProcessType),
		Modality:       strings.TrimSpace(input.Modality),
		Section:        strings.TrimSpace(input.Section),
		MainTopic:      strings.TrimSpace(input.MainTopic),
		RequestingArea: strings.TrimSpace(input.RequestingArea),
		Status:         status,
	}, nil
}

// Update writes only the fields present in input. A new number must keep the
// format and must not belong to another record.
func (s *RecordService) Update(ctx context.Context, id uint, input UpdateRecordInput) (*model.CaseRecord, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if input.Number != nil {
		number, err := s.normalizeNumber(*input.Number)
		if err != nil {
			return nil, err
		}
		if number != current.Number {
			existing, err := s.recordRepo.GetByNumber(ctx, number)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != current.ID {
				return nil, ErrRecordExists
			}
			fields["numero_expediente"] = number
		}
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		if !model.IsValidStatus(status) {
			return nil, ErrInvalidStatus
		}
		fields["estado"] = status
	}
	setText(fields, "fecha_creacion", input.CreationDate)
	setText(fields, "tipo_proceso", input.ProcessType)
	setText(fields, "modalidad", input.Modality)
	setText(fields, "seccion", input.Section)
	setText(fields, "tema_principal", input.MainTopic)
	setText(fields, "area_solicitante", input.RequestingArea)

	if len(fields) == 0 {
		return current, nil
	}
	updated, err := s.recordRepo.Updates(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrRecordNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *RecordService) normalizeNumber(raw string) (string, error) {
	number := strings.ToUpper(strings.TrimSpace(raw))
	if number == "" {
		return "", ErrInvalidInput
	}
	if !model.IsValidRecordNumber(number) {
		return "", ErrInvalidRecordNumber
	}
	return number, nil
}

func setText(fields map[string]interface{}, column string, value *string) {
	if value != nil {
		fields[column] = strings.TrimSpace(*value)
	}
}

func (s *RecordService) UpdateStatus(ctx context.Context, id uint, status string) (*model.CaseRecord, error) {
	status = strings.TrimSpace(status)
	if !model.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	updated, err := s.recordRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrRecordNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *RecordService) Lookup(ctx context.Context, number string) (*RecordDetail, error) {
	record, err := s.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	docs, err := s.documentRepo.ListByRecordID(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].RecordNumber = record.Number
		docs[i].RecordProcessType = record.ProcessType
	}
	return &RecordDetail{Record: record, Documents: docs}, nil
}
