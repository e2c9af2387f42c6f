package prompt

import (
	"strings"

	"legalrecords-assistant/internal/retrieval"
)

type Intent string

const (
	IntentSimple Intent = "simple"
	IntentSearch Intent = "search"
	IntentReport Intent = "report"
)

var existenceWords = wordSet(
	"existe", "existen", "hay", "encuentra", "encuentran", "figura", "registrado", "registrada",
)

var reportWords = wordSet(
	"analiza", "analizar", "análisis", "informe", "reporte", "resumen", "resume", "resumir",
	"detalla", "detallado", "detallada", "evalúa", "evaluar",
)

// ParseIntent accepts the canonical names, case-insensitively.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentSimple:
		return IntentSimple, true
	case IntentSearch:
		return IntentSearch, true
	case IntentReport:
		return IntentReport, true
	}
	return "", false
}

// ClassifyIntent picks the response shape for a raw query. Existence wording
// counts only when the query names a record number.
func ClassifyIntent(query string, hasAnchor bool) Intent {
	var existence, report bool
	for _, w := range retrieval.Words(query) {
		if _, ok := existenceWords[w]; ok {
			existence = true
		}
		if _, ok := reportWords[w]; ok {
			report = true
		}
	}
	switch {
	case existence && hasAnchor:
		return IntentSimple
	case report:
		return IntentReport
	default:
		return IntentSearch
	}
}

func wordSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}
