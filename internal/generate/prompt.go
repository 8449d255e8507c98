package generate

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/andina-labs/yachay/internal/models"
)

// Intent is the query type driving prompt template selection.
type Intent string

// The closed set of query intents.
const (
	IntentFactual        Intent = "factual"
	IntentRecommendation Intent = "recommendation"
	IntentPlanning       Intent = "planning"
	IntentComparative    Intent = "comparative"
)

// IntentClassifier assigns an intent to a question.
type IntentClassifier interface {
	Classify(ctx context.Context, question string) (Intent, error)
}

// KeywordClassifier is a heuristic classifier keyed on Spanish (and English)
// intent markers. Serves as the default when no classifier model is wired.
type KeywordClassifier struct{}

var intentMarkers = map[Intent][]string{
	IntentRecommendation: {"recomiend", "recomend", "mejor", "sugerencia", "suger", "vale la pena", "recommend"},
	IntentPlanning:       {"itinerario", "plan ", "planear", "cuántos días", "cuantos dias", "ruta", "presupuesto", "itinerary"},
	IntentComparative:    {"compara", "diferencia", "versus", " vs ", "o mejor", "cuál de", "cual de", "compare"},
}

// Classify returns the intent matching the first marker found; factual otherwise.
func (KeywordClassifier) Classify(ctx context.Context, question string) (Intent, error) {
	q := " " + strings.ToLower(question) + " "
	for _, intent := range []Intent{IntentComparative, IntentPlanning, IntentRecommendation} {
		for _, marker := range intentMarkers[intent] {
			if strings.Contains(q, marker) {
				return intent, nil
			}
		}
	}
	return IntentFactual, nil
}

// promptData feeds the intent templates.
type promptData struct {
	Question string
	Context  string
}

// Intent templates are data, not branching code. All share the grounding
// instruction: answer only from the numbered context and cite sources.
var promptTemplates = map[Intent]*template.Template{
	IntentFactual: template.Must(template.New("factual").Parse(
		`Eres un asistente turístico del Perú. Responde la pregunta usando únicamente la información del contexto numerado. Si el contexto no contiene la respuesta, dilo explícitamente. Cita las fuentes como [n].

Contexto:
{{.Context}}

Pregunta: {{.Question}}

Respuesta:`)),
	IntentRecommendation: template.Must(template.New("recommendation").Parse(
		`Eres un asistente turístico del Perú. Ofrece una recomendación basada únicamente en el contexto numerado, explicando brevemente el porqué. No inventes lugares ni servicios que no aparezcan en el contexto. Cita las fuentes como [n].

Contexto:
{{.Context}}

Pregunta: {{.Question}}

Recomendación:`)),
	IntentPlanning: template.Must(template.New("planning").Parse(
		`Eres un asistente turístico del Perú. Propón un plan paso a paso usando únicamente la información del contexto numerado (horarios, distancias y requisitos solo si aparecen ahí). Cita las fuentes como [n].

Contexto:
{{.Context}}

Pregunta: {{.Question}}

Plan:`)),
	IntentComparative: template.Must(template.New("comparative").Parse(
		`Eres un asistente turístico del Perú. Compara las opciones mencionadas usando únicamente la información del contexto numerado, señalando ventajas y desventajas de cada una. Cita las fuentes como [n].

Contexto:
{{.Context}}

Pregunta: {{.Question}}

Comparación:`)),
}

// BuildPrompt renders the template for intent with the question and the
// numbered context block. Unknown intents fall back to the factual template.
func BuildPrompt(intent Intent, question string, contexts []*models.ScoredChunk) (string, error) {
	tmpl, ok := promptTemplates[intent]
	if !ok {
		tmpl = promptTemplates[IntentFactual]
	}
	var b strings.Builder
	err := tmpl.Execute(&b, promptData{
		Question: question,
		Context:  FormatContext(contexts),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// FormatContext numbers each chunk with its source document and page.
func FormatContext(contexts []*models.ScoredChunk) string {
	var b strings.Builder
	for i, sc := range contexts {
		fmt.Fprintf(&b, "[%d] (documento %s, página %d): %s\n", i+1, sc.Chunk.DocumentID, sc.Chunk.Page, sc.Chunk.Text)
	}
	return b.String()
}
