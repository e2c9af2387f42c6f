package model

import "time"

const (
	DocTypeOficio                    = "Oficio"
	DocTypeMemorando                 = "Memorando"
	DocTypeInforme                   = "Informe"
	DocTypeCarta                     = "Carta"
	DocTypeContrato                  = "Contrato"
	DocTypeProveido                  = "Proveído"
	DocTypeHojaEnvio                 = "Hoja de Envío"
	DocTypeTDR                       = "TDR"
	DocTypeInformacionComplementaria = "Información Complementaria"
	DocTypeAnexo                     = "Anexo"
)

var DocumentTypes = []string{
	DocTypeOficio,
	DocTypeMemorando,
	DocTypeInforme,
	DocTypeCarta,
	DocTypeContrato,
	DocTypeProveido,
	DocTypeHojaEnvio,
	DocTypeTDR,
	DocTypeInformacionComplementaria,
	DocTypeAnexo,
}

// Document is a file attached to exactly one CaseRecord with its extracted text.
// RecordNumber and RecordProcessType are filled in during retrieval only.
type Document struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	RecordID          uint      `gorm:"column:expediente_id;not null;index" json:"expediente_id"`
	FileName          string    `gorm:"column:nombre_archivo;size:256;not null" json:"nombre_archivo"`
	Type              string    `gorm:"column:tipo_documento;size:64;not null" json:"tipo_documento"`
	Content           string    `gorm:"column:contenido;type:longtext" json:"contenido"`
	UploadedAt        time.Time `gorm:"column:fecha_subida;autoCreateTime" json:"fecha_subida"`
	RecordNumber      string    `gorm:"-" json:"expediente_numero,omitempty"`
	RecordProcessType string    `gorm:"-" json:"expediente_tipo,omitempty"`
}

func (Document) TableName() string {
	return "documentos_expediente"
}

func IsValidDocumentType(docType string) bool {
	for _, t := range DocumentTypes {
		if t == docType {
			return true
		}
	}
	return false
}
