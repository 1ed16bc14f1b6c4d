package study

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mwiater/studyrag/internal/logging"
)

const (
	// DialogueContextK is how many chunks ground a dialogue.
	DialogueContextK = 8
	// DefaultExchanges is the number of Student/Teacher pairs requested by default.
	DefaultExchanges = 5
)

const dialogueInstructions = `You are generating an educational dialogue between a Student and a Teacher about economics.

STRICT FORMAT REQUIREMENT:
You MUST output ONLY the dialogue in this exact format:
Student: [student's question or comment]
Teacher: [teacher's explanation]
Student: [follow-up question]
Teacher: [further explanation]
...and so on.

Rules:
1. Generate EXACTLY %d exchanges (Student-Teacher pairs)
2. Base ALL content ONLY on the provided context
3. The Student asks questions progressing from basic to more detailed
4. The Teacher provides clear, educational explanations using ONLY information from the sources
5. Include examples and clarifications from the source materials
6. Make it conversational and natural
7. Build each exchange on the previous one
8. Do NOT add any text outside the Student:/Teacher: format
9. Do NOT add introductions, conclusions, or meta-commentary

Context from sources:
%s

Topic: %s

Generate a %d-exchange educational dialogue about: %s`

// ErrEmptyTopic is returned for a blank dialogue topic.
var ErrEmptyTopic = errors.New("topic is empty")

// Exchange is one Student question and the Teacher's reply.
type Exchange struct {
	Student string `json:"student"`
	Teacher string `json:"teacher"`
}

// Dialogue is a generated Student/Teacher conversation about a topic.
type Dialogue struct {
	Topic     string       `json:"topic"`
	Text      string       `json:"dialogue_text"`
	Exchanges []Exchange   `json:"exchanges"`
	Sources   []SourceInfo `json:"sources"`
}

// BuildDialoguePrompt assembles the dialogue prompt.
func BuildDialoguePrompt(contextBlock, topic string, exchanges int) string {
	return fmt.Sprintf(dialogueInstructions, exchanges, contextBlock, topic, exchanges, topic)
}

// Dialogue generates a conversation of the given number of exchanges about
// topic, grounded on DialogueContextK chunks. exchanges <= 0 uses DefaultExchanges.
func (a *Assistant) Dialogue(ctx context.Context, topic string, exchanges int) (Dialogue, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Dialogue{}, ErrEmptyTopic
	}
	if exchanges <= 0 {
		exchanges = DefaultExchanges
	}

	contextBlock, results, err := a.retriever.RetrieveContext(ctx, topic, DialogueContextK)
	if err != nil {
		return Dialogue{}, err
	}

	logging.LogEvent("[STUDY] dialogue topic=%q exchanges=%d sources=%d", topic, exchanges, len(results))
	text, err := a.generator.Generate(ctx, BuildDialoguePrompt(contextBlock, topic, exchanges))
	if err != nil {
		return Dialogue{}, err
	}
	text = strings.TrimSpace(text)

	parsed := ParseDialogue(text)
	if len(parsed) != exchanges {
		logging.LogWarn("[STUDY] asked for %d exchanges, model produced %d", exchanges, len(parsed))
	}
	return Dialogue{
		Topic:     topic,
		Text:      text,
		Exchanges: parsed,
		Sources:   Sources(results),
	}, nil
}

// ParseDialogue splits "Student:"/"Teacher:" lines into exchanges. Other lines
// are ignored, and a Student line without a Teacher reply is dropped.
func ParseDialogue(text string) []Exchange {
	var (
		out     []Exchange
		current Exchange
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Student:"):
			if current.Teacher != "" {
				out = append(out, current)
				current = Exchange{}
			}
			current.Student = strings.TrimSpace(strings.TrimPrefix(line, "Student:"))
		case strings.HasPrefix(line, "Teacher:"):
			current.Teacher = strings.TrimSpace(strings.TrimPrefix(line, "Teacher:"))
		}
	}
	if current.Teacher != "" {
		out = append(out, current)
	}
	return out
}

// SuggestedTopics returns starter dialogue topics.
func SuggestedTopics() []string {
	return []string{
		"Introduction to Economics",
		"Supply and Demand Fundamentals",
		"Opportunity Cost and Trade-offs",
		"Market Equilibrium",
		"Factors of Production",
		"Economic Systems",
		"Role of Government in Economy",
		"Incentives and Decision Making",
	}
}
