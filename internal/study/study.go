// internal/study/study.go
// Package study holds the tutoring modes built on the retriever. Each mode
// retrieves context, assembles its prompt and hands it to a Generator: Ask for
// question answering, Dialogue for a Student/Teacher conversation and Summarize
// for a structured section summary.
package study

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mwiater/studyrag/internal/logging"
	"github.com/mwiater/studyrag/internal/providers"
	"github.com/mwiater/studyrag/internal/rag"
	"github.com/mwiater/studyrag/internal/util"
)

// PreviewRunes is the length of the text preview attached to each source.
const PreviewRunes = 200

// TutorInstructions is the default system prompt for question answering.
const TutorInstructions = `You are a friendly, helpful economics teacher having a natural conversation with a student.

Rules:
1. Be conversational and warm - respond like a real teacher chatting with a student
2. Use the provided context to inform your answers, but don't cite sources explicitly (no "according to Source 1")
3. If continuing a conversation, acknowledge what was discussed before
4. Keep responses concise and natural (2-4 sentences usually)
5. Use casual language like "Hey!", "Great question!", "Actually...", "You know what's interesting..."
6. If you don't have info in the materials, say something like "Hmm, I don't have that specific info in our course materials"
7. Never be formal or list-like - just chat naturally`

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// ContextRetriever is the part of rag.Retriever the assistant depends on.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query string, k int) (string, []rag.Result, error)
}

// SourceInfo describes one retrieved chunk for display.
type SourceInfo struct {
	Number          int     `json:"number"`
	Type            string  `json:"type"`
	SourceName      string  `json:"source_name"`
	TextPreview     string  `json:"text_preview"`
	SimilarityScore float64 `json:"similarity_score"`
	VideoURL        string  `json:"video_url,omitempty"`
}

// Answer is a generated answer with the sources that grounded it.
type Answer struct {
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
	Sources  []SourceInfo `json:"sources"`
}

// Assistant answers questions from the indexed course material.
type Assistant struct {
	retriever    ContextRetriever
	generator    providers.Generator
	instructions string
}

// Option customizes an Assistant.
type Option func(*Assistant)

// WithInstructions replaces the default tutor instructions.
func WithInstructions(instructions string) Option {
	return func(a *Assistant) {
		if strings.TrimSpace(instructions) != "" {
			a.instructions = instructions
		}
	}
}

// NewAssistant builds an Assistant.
func NewAssistant(retriever ContextRetriever, generator providers.Generator, opts ...Option) *Assistant {
	a := &Assistant{retriever: retriever, generator: generator, instructions: TutorInstructions}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildPrompt assembles the single prompt sent to the generator.
func BuildPrompt(instructions, contextBlock, question string) string {
	return fmt.Sprintf("%s\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:", instructions, contextBlock, question)
}

// Ask retrieves k chunks for question and generates an answer from them.
// Generator failures are returned unchanged and never retried here.
func (a *Assistant) Ask(ctx context.Context, question string, k int) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	contextBlock, results, err := a.retriever.RetrieveContext(ctx, question, k)
	if err != nil {
		return Answer{}, err
	}

	logging.LogEvent("[STUDY] question=%q sources=%d", question, len(results))
	text, err := a.generator.Generate(ctx, BuildPrompt(a.instructions, contextBlock, question))
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Question: question,
		Answer:   strings.TrimSpace(text),
		Sources:  Sources(results),
	}, nil
}

// Sources converts retrieval results to numbered display records.
func Sources(results []rag.Result) []SourceInfo {
	out := make([]SourceInfo, len(results))
	for i, r := range results {
		sourceType := string(r.Type)
		if sourceType == "" {
			sourceType = "unknown"
		}
		name := r.Source
		if name == "" {
			name = "unknown"
		}
		out[i] = SourceInfo{
			Number:          i + 1,
			Type:            sourceType,
			SourceName:      name,
			TextPreview:     util.Preview(r.Text, PreviewRunes),
			SimilarityScore: r.SimilarityScore,
			VideoURL:        r.VideoURL,
		}
	}
	return out
}

// SuggestedQuestions returns starter questions for the course material.
func SuggestedQuestions() []string {
	return []string{
		"What is economics and why is it important?",
		"Explain the concept of supply and demand",
		"What are the factors of production?",
		"How do markets allocate resources?",
		"What is the difference between microeconomics and macroeconomics?",
		"Explain opportunity cost with an example",
		"What role does government play in the economy?",
		"How do incentives affect economic behavior?",
	}
}
