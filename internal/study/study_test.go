package study

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mwiater/studyrag/internal/rag"
)

type fakeRetriever struct {
	context string
	results []rag.Result
	err     error
	gotK    int
}

func (f *fakeRetriever) RetrieveContext(_ context.Context, _ string, k int) (string, []rag.Result, error) {
	f.gotK = k
	return f.context, f.results, f.err
}

type fakeGenerator struct {
	prompt string
	reply  string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestAskAssemblesPromptAndSources(t *testing.T) {
	long := strings.Repeat("scarcity ", 40)
	retriever := &fakeRetriever{
		context: "[Source 1 - pdf]:\nEconomics studies scarcity.",
		results: []rag.Result{
			{Chunk: rag.Chunk{ID: "a", Text: "Economics studies scarcity.", Source: "economics_pdf", Type: rag.SourceTypePDF}, SimilarityScore: 0.9},
			{Chunk: rag.Chunk{ID: "b", Text: long, Source: "youtube_video_x", Type: rag.SourceTypeVideo, VideoURL: "https://youtu.be/x"}, SimilarityScore: 0.4},
		},
	}
	generator := &fakeGenerator{reply: "  Hey! Great question.  "}

	answer, err := NewAssistant(retriever, generator).Ask(context.Background(), " What is economics? ", 5)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if retriever.gotK != 5 {
		t.Fatalf("expected k to be passed through, got %d", retriever.gotK)
	}
	wantPrompt := TutorInstructions + "\n\nContext:\n[Source 1 - pdf]:\nEconomics studies scarcity.\n\nQuestion: What is economics?\n\nAnswer:"
	if generator.prompt != wantPrompt {
		t.Fatalf("unexpected prompt:\n%s", generator.prompt)
	}
	if answer.Answer != "Hey! Great question." || answer.Question != "What is economics?" {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	if len(answer.Sources) != 2 || answer.Sources[0].Number != 1 || answer.Sources[1].Number != 2 {
		t.Fatalf("unexpected sources: %+v", answer.Sources)
	}
	if got := answer.Sources[1].TextPreview; len([]rune(got)) != PreviewRunes+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected preview: %q", got)
	}
	if answer.Sources[1].VideoURL != "https://youtu.be/x" || answer.Sources[1].Type != "youtube" {
		t.Fatalf("unexpected video source: %+v", answer.Sources[1])
	}
}

func TestAskSurfacesErrorsUnchanged(t *testing.T) {
	notBuilt := &fakeRetriever{err: rag.ErrNotBuilt}
	if _, err := NewAssistant(notBuilt, &fakeGenerator{}).Ask(context.Background(), "q", 3); !errors.Is(err, rag.ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}

	boom := errors.New("quota exceeded")
	generator := &fakeGenerator{err: boom}
	if _, err := NewAssistant(&fakeRetriever{}, generator).Ask(context.Background(), "q", 3); err != boom {
		t.Fatalf("expected generator error unchanged, got %v", err)
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	if _, err := NewAssistant(&fakeRetriever{}, &fakeGenerator{}).Ask(context.Background(), "   ", 3); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestWithInstructions(t *testing.T) {
	generator := &fakeGenerator{reply: "ok"}
	a := NewAssistant(&fakeRetriever{context: "ctx"}, generator, WithInstructions("Be brief."))
	if _, err := a.Ask(context.Background(), "q", 1); err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if !strings.HasPrefix(generator.prompt, "Be brief.\n\nContext:\nctx") {
		t.Fatalf("custom instructions not used: %q", generator.prompt)
	}
}

func TestSuggestedQuestions(t *testing.T) {
	if len(SuggestedQuestions()) == 0 {
		t.Fatalf("expected suggested questions")
	}
}

func TestDialogueUsesEightChunksAndParsesExchanges(t *testing.T) {
	retriever := &fakeRetriever{
		context: "[Source 1 - pdf]:\nDemand falls as price rises.",
		results: []rag.Result{{Chunk: rag.Chunk{ID: "a", Text: "Demand falls as price rises.", Source: "chapter1_pdf", Type: rag.SourceTypePDF}, SimilarityScore: 0.8}},
	}
	generator := &fakeGenerator{reply: "Student: What is demand?\nTeacher: How much people want to buy at each price.\n\nStudent: And when price rises?\nTeacher: Demand falls.\n"}

	d, err := NewAssistant(retriever, generator).Dialogue(context.Background(), " Supply and Demand ", 2)
	if err != nil {
		t.Fatalf("Dialogue returned error: %v", err)
	}
	if retriever.gotK != DialogueContextK {
		t.Fatalf("expected k=%d, got %d", DialogueContextK, retriever.gotK)
	}
	if generator.prompt != BuildDialoguePrompt(retriever.context, "Supply and Demand", 2) {
		t.Fatalf("unexpected prompt:\n%s", generator.prompt)
	}
	if !strings.Contains(generator.prompt, "Generate EXACTLY 2 exchanges") || !strings.HasSuffix(generator.prompt, "Generate a 2-exchange educational dialogue about: Supply and Demand") {
		t.Fatalf("exchange count or topic missing from prompt:\n%s", generator.prompt)
	}
	want := []Exchange{
		{Student: "What is demand?", Teacher: "How much people want to buy at each price."},
		{Student: "And when price rises?", Teacher: "Demand falls."},
	}
	if len(d.Exchanges) != len(want) || d.Exchanges[0] != want[0] || d.Exchanges[1] != want[1] {
		t.Fatalf("unexpected exchanges: %+v", d.Exchanges)
	}
	if d.Topic != "Supply and Demand" || len(d.Sources) != 1 {
		t.Fatalf("unexpected dialogue: %+v", d)
	}
}

func TestDialogueDefaultsAndErrors(t *testing.T) {
	generator := &fakeGenerator{reply: "Student: hi\nTeacher: hello"}
	a := NewAssistant(&fakeRetriever{context: "ctx"}, generator)
	if _, err := a.Dialogue(context.Background(), "markets", 0); err != nil {
		t.Fatalf("Dialogue returned error: %v", err)
	}
	if !strings.Contains(generator.prompt, "Generate EXACTLY 5 exchanges") {
		t.Fatalf("expected default exchange count in prompt")
	}
	if _, err := a.Dialogue(context.Background(), "  ", 3); !errors.Is(err, ErrEmptyTopic) {
		t.Fatalf("expected ErrEmptyTopic, got %v", err)
	}

	boom := errors.New("quota exceeded")
	failing := NewAssistant(&fakeRetriever{context: "ctx"}, &fakeGenerator{err: boom})
	if _, err := failing.Dialogue(context.Background(), "markets", 2); !errors.Is(err, boom) {
		t.Fatalf("expected generator error unchanged, got %v", err)
	}
}

func TestParseDialogue(t *testing.T) {
	text := "Here is your dialogue:\nStudent: one\nStudent: one again\nTeacher: answer\nStudent: dangling"
	got := ParseDialogue(text)
	if len(got) != 1 || got[0].Student != "one again" || got[0].Teacher != "answer" {
		t.Fatalf("unexpected parse: %+v", got)
	}
	if ParseDialogue("no dialogue here") != nil {
		t.Fatalf("expected no exchanges")
	}
}

func TestSummarizeUsesFifteenChunks(t *testing.T) {
	retriever := &fakeRetriever{context: "[Source 1 - youtube]:\nMarkets clear."}
	generator := &fakeGenerator{reply: "# CHAPTER OVERVIEW\nMarkets.\n"}

	s, err := NewAssistant(retriever, generator).Summarize(context.Background(), "")
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if retriever.gotK != SummaryContextK {
		t.Fatalf("expected k=%d, got %d", SummaryContextK, retriever.gotK)
	}
	if s.Topic != DefaultSummaryTopic || s.Summary != "# CHAPTER OVERVIEW\nMarkets." {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if !strings.Contains(generator.prompt, "Context:\n[Source 1 - youtube]:\nMarkets clear.") ||
		!strings.HasSuffix(generator.prompt, "Create a comprehensive video-style summary for: Chapter Overview") {
		t.Fatalf("unexpected prompt:\n%s", generator.prompt)
	}

	if _, err := NewAssistant(retriever, generator).Summarize(context.Background(), "Supply and Demand"); err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if !strings.HasSuffix(generator.prompt, "for: Supply and Demand") {
		t.Fatalf("section name not used: %s", generator.prompt)
	}
}

func TestSuggestedTopicsAndSections(t *testing.T) {
	if len(SuggestedTopics()) != 8 || len(SuggestedSections()) != 8 {
		t.Fatalf("expected eight topics and sections")
	}
}
