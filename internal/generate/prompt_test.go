package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/andina-labs/yachay/internal/models"
)

func TestKeywordClassifier(t *testing.T) {
	cases := []struct {
		question string
		want     Intent
	}{
		{"¿A qué altura está Machu Picchu?", IntentFactual},
		{"¿Me recomiendas un restaurante en Cusco?", IntentRecommendation},
		{"Arma un itinerario de 3 días en el Valle Sagrado", IntentPlanning},
		{"¿Cuál es la diferencia entre el tren y el bus a Aguas Calientes?", IntentComparative},
		{"¿Cuántos habitantes tiene Lima?", IntentFactual},
	}
	c := KeywordClassifier{}
	for _, tc := range cases {
		got, err := c.Classify(context.Background(), tc.question)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.question, tc.want, got)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	contexts := []*models.ScoredChunk{
		{Chunk: &models.Chunk{DocumentID: "guia-cusco", Page: 3, Text: "Machu Picchu está a 2430 metros."}},
		{Chunk: &models.Chunk{DocumentID: "guia-cusco", Page: 7, Text: "La temporada seca va de mayo a octubre."}},
	}
	prompt, err := BuildPrompt(IntentFactual, "¿A qué altura está Machu Picchu?", contexts)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "[1] (documento guia-cusco, página 3)") {
		t.Error("prompt should contain the numbered first context")
	}
	if !strings.Contains(prompt, "¿A qué altura está Machu Picchu?") {
		t.Error("prompt should contain the question")
	}
	if !strings.Contains(prompt, "2430 metros") {
		t.Error("prompt should contain the context text")
	}
}

func TestBuildPromptVariesByIntent(t *testing.T) {
	contexts := []*models.ScoredChunk{
		{Chunk: &models.Chunk{DocumentID: "d", Page: 1, Text: "texto"}},
	}
	factual, _ := BuildPrompt(IntentFactual, "q", contexts)
	planning, _ := BuildPrompt(IntentPlanning, "q", contexts)
	if factual == planning {
		t.Error("different intents should produce different prompts")
	}
}

func TestBuildPromptUnknownIntent(t *testing.T) {
	prompt, err := BuildPrompt(Intent("other"), "q", nil)
	if err != nil {
		t.Fatal(err)
	}
	if prompt == "" {
		t.Error("unknown intent should fall back to the factual template")
	}
}
