package study

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/studyrag/internal/logging"
)

const (
	// SummaryContextK is how many chunks ground a summary.
	SummaryContextK = 15
	// DefaultSummaryTopic is summarized when no section is named.
	DefaultSummaryTopic = "Chapter Overview"
)

const summaryInstructions = `You are creating a structured video-style educational summary for economics content.

Generate a comprehensive, well-structured summary organized as if it were a presentation or educational video.

Structure your output with these sections:

# CHAPTER OVERVIEW
[Broad introduction to the chapter/topic]

# KEY LEARNING OBJECTIVES
- Objective 1
- Objective 2
- Objective 3
[etc.]

# CORE CONCEPTS

## Concept 1: [Name]
**Definition:** [Clear definition]
**Explanation:** [Detailed explanation]
**Key Points:**
- Point 1
- Point 2
**Real-World Example:** [Example from sources if available]

## Concept 2: [Name]
[Same structure]

[Continue for all major concepts]

# VISUAL REPRESENTATIONS
[Describe key graphs, models, or diagrams mentioned in the sources]

# IMPORTANT DEFINITIONS
- **Term 1:** Definition
- **Term 2:** Definition
[All key terms]

# REAL-WORLD APPLICATIONS
[How these concepts apply to real economic situations]

# EXAM TIPS & KEY TAKEAWAYS
- Quick revision point 1
- Quick revision point 2
- Common mistakes to avoid
- What examiners look for

# CONNECTIONS TO OTHER TOPICS
[How this topic relates to other economic concepts]

Rules:
1. Base ALL content strictly on the provided sources
2. Be comprehensive and educational
3. Use clear, structured formatting
4. Include all relevant details from sources
5. Make it suitable for visual presentation
6. Focus on clarity and learning

Context:
%s

Create a comprehensive video-style summary for: %s`

// Summary is a structured, presentation-style summary of a section.
type Summary struct {
	Topic   string       `json:"topic"`
	Summary string       `json:"summary"`
	Sources []SourceInfo `json:"sources"`
}

// BuildSummaryPrompt assembles the summary prompt.
func BuildSummaryPrompt(contextBlock, topic string) string {
	return fmt.Sprintf(summaryInstructions, contextBlock, topic)
}

// Summarize produces a summary of topic grounded on SummaryContextK chunks.
// A blank topic summarizes the whole chapter.
func (a *Assistant) Summarize(ctx context.Context, topic string) (Summary, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultSummaryTopic
	}

	contextBlock, results, err := a.retriever.RetrieveContext(ctx, topic, SummaryContextK)
	if err != nil {
		return Summary{}, err
	}

	logging.LogEvent("[STUDY] summary topic=%q sources=%d", topic, len(results))
	text, err := a.generator.Generate(ctx, BuildSummaryPrompt(contextBlock, topic))
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Topic:   topic,
		Summary: strings.TrimSpace(text),
		Sources: Sources(results),
	}, nil
}

// SuggestedSections returns sections worth summarizing.
func SuggestedSections() []string {
	return []string{
		"Complete Chapter Overview",
		"Introduction to Economics",
		"Fundamental Economic Concepts",
		"Supply and Demand",
		"Market Structures",
		"Production and Costs",
		"Economic Systems",
		"Government and Economics",
	}
}
