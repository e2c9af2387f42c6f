package prompt

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/retrieval"
)

const (
	maxRecordsShown    = 5
	maxDocumentsShown  = 7
	maxReferencesShown = 3
	maxRowsPerRef      = 2
	excerptRunes       = 300
	refValueRunes      = 100
)

const persona = "Eres un asistente jurídico especializado en gestión de expedientes. " +
	"Responde a la consulta utilizando la información de la base de datos proporcionada."

const noInfoNotice = "No se encontró información específica en la base de datos sobre esta consulta. " +
	"Por favor responde de manera general basándote en tu conocimiento sobre gestión de expedientes."

var instructions = map[Intent]string{
	IntentSimple: `Instrucciones:
1. Responde de forma breve y directa, en una o dos frases.
2. No añadas explicaciones, antecedentes ni recomendaciones.
3. Si el dato no figura en la información proporcionada, dilo claramente.`,
	IntentSearch: `Instrucciones:
1. Presenta los resultados de forma estructurada, con un elemento por expediente o documento.
2. Equilibra la brevedad con el contexto necesario para entender cada resultado.
3. Si la información es insuficiente, indica qué datos adicionales serían necesarios.`,
	IntentReport: `Instrucciones:
1. Elabora un informe completo con introducción, análisis y conclusión.
2. Basa el análisis en la información proporcionada y señala cualquier vacío de información.
3. Cierra con recomendaciones sobre los próximos pasos a seguir.
4. Utiliza un tono formal, como lo haría un asesor jurídico experimentado.`,
}

// Assemble renders the system prompt for one query. The output depends only
// on its arguments.
func Assemble(res retrieval.Result, intent Intent) string {
	block, ok := instructions[intent]
	if !ok {
		intent = IntentSearch
		block = instructions[IntentSearch]
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString(block)
	b.WriteString("\n")

	writeRecords(&b, res.Records)
	writeDocuments(&b, res.Documents)
	writeReferences(&b, res.References)

	if res.Empty() {
		b.WriteString("\n\n")
		b.WriteString(noInfoNotice)
		if intent == IntentSimple && len(res.Anchors) > 0 {
			fmt.Fprintf(&b, "\nLos expedientes %s no existen en el sistema. Indícalo claramente en la respuesta.",
				strings.Join(res.Anchors, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeRecords(b *strings.Builder, records []model.CaseRecord) {
	if len(records) == 0 {
		return
	}
	b.WriteString("\n\n## Expedientes encontrados:\n")
	for i, rec := range records {
		if i == maxRecordsShown {
			break
		}
		fmt.Fprintf(b, "\n### Expediente %d:\n", i+1)
		writeField(b, "Número", rec.Number)
		writeField(b, "Fecha de creación", rec.CreationDate)
		writeField(b, "Tipo de proceso", rec.ProcessType)
		writeField(b, "Modalidad", rec.Modality)
		writeField(b, "Sección", rec.Section)
		writeField(b, "Tema principal", rec.MainTopic)
		writeField(b, "Área solicitante", rec.RequestingArea)
		writeField(b, "Estado", rec.Status)
	}
}

func writeDocuments(b *strings.Builder, docs []model.Document) {
	if len(docs) == 0 {
		return
	}
	b.WriteString("\n\n## Documentos relevantes:\n")
	for i, doc := range docs {
		if i == maxDocumentsShown {
			break
		}
		fmt.Fprintf(b, "\n### Documento %d:\n", i+1)
		writeField(b, "Tipo", doc.Type)
		writeField(b, "Archivo", doc.FileName)
		writeField(b, "Extracto", truncate(strings.TrimSpace(doc.Content), excerptRunes))
		writeField(b, "Pertenece al expediente", doc.RecordNumber)
	}
}

func writeReferences(b *strings.Builder, refs []model.ReferenceMatch) {
	if len(refs) == 0 {
		return
	}
	b.WriteString("\n\n## Normativas relacionadas:\n")
	for i, ref := range refs {
		if i == maxReferencesShown {
			break
		}
		fmt.Fprintf(b, "\n### %s relacionados con '%s':\n", tableLabel(ref.Table), ref.Keyword)
		for j, row := range ref.Rows {
			if j == maxRowsPerRef {
				break
			}
			fmt.Fprintf(b, "- Registro %d:\n", j+1)
			for _, field := range row {
				if field.Value == nil || retrieval.IsBookkeepingColumn(field.Name) {
					continue
				}
				fmt.Fprintf(b, "  * %s: %s\n", field.Name, truncate(fmt.Sprint(field.Value), refValueRunes))
			}
		}
	}
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

// tableLabel turns "normativa_articulos" into "Articulos".
func tableLabel(table string) string {
	name := strings.ToLower(strings.TrimPrefix(table, "normativa_"))
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
