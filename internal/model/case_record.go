package model

import (
	"regexp"
	"time"
)

// RecordNumberPattern matches case record numbers such as 2024-ABC-XYZ-0001.
var RecordNumberPattern = regexp.MustCompile(`\d{4}-[A-Za-z]{3}-[A-Za-z]{3}-\d{4}`)

var recordNumberExact = regexp.MustCompile(`^\d{4}-[A-Za-z]{3}-[A-Za-z]{3}-\d{4}$`)

const (
	StatusActive     = "Activo"
	StatusInProgress = "En proceso"
	StatusFinished   = "Finalizado"
	StatusArchived   = "Archivado"
	StatusSuspended  = "Suspendido"
)

var RecordStatuses = []string{StatusActive, StatusInProgress, StatusFinished, StatusArchived, StatusSuspended}

// CaseRecord is an "expediente", the primary case entity.
type CaseRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Number         string    `gorm:"column:numero_expediente;size:32;not null;uniqueIndex" json:"numero_expediente"`
	CreationDate   string    `gorm:"column:fecha_creacion;size:32" json:"fecha_creacion"`
	ProcessType    string    `gorm:"column:tipo_proceso;size:128" json:"tipo_proceso"`
	Modality       string    `gorm:"column:modalidad;size:128" json:"modalidad"`
	Section        string    `gorm:"column:seccion;size:128" json:"seccion"`
	MainTopic      string    `gorm:"column:tema_principal;type:text" json:"tema_principal"`
	RequestingArea string    `gorm:"column:area_solicitante;size:256" json:"area_solicitante"`
	Status         string    `gorm:"column:estado;size:32;not null;default:Activo" json:"estado"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (CaseRecord) TableName() string {
	return "expedientes"
}

// RecordSearchColumns are the text columns scanned by keyword search.
var RecordSearchColumns = []string{
	"numero_expediente",
	"tipo_proceso",
	"tema_principal",
	"area_solicitante",
	"seccion",
}

func IsValidRecordNumber(number string) bool {
	return recordNumberExact.MatchString(number)
}

func IsValidStatus(status string) bool {
	for _, s := range RecordStatuses {
		if s == status {
			return true
		}
	}
	return false
}
