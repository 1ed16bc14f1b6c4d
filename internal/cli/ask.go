package studyrag

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/studyrag/internal/appconfig"
	"github.com/mwiater/studyrag/internal/providerfactory"
	"github.com/mwiater/studyrag/internal/rag"
	"github.com/mwiater/studyrag/internal/study"
	"github.com/mwiater/studyrag/internal/util"
)

var (
	askK    int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:         "ask <question>",
	Annotations: map[string]string{validateAnnotation: validateAll},
	Short:       "Answer a question from the indexed course material",
	Args:        cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		out := cmd.OutOrStdout()

		assistant, err := newAssistant(cfg)
		if err != nil {
			return err
		}
		k := askK
		if k <= 0 {
			k = cfg.TopK
		}
		answer, err := assistant.Ask(cmd.Context(), strings.Join(args, " "), k)
		if err != nil {
			return err
		}

		if askJSON {
			return writeJSON(out, answer)
		}
		fmt.Fprintln(out, answerStyle.Render(util.Wrap(answer.Answer, wrapWidth)))
		printSources(out, answer.Sources)
		printMetrics(out, cfg)
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "List starter questions, dialogue topics and summary sections",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		groups := []struct {
			title string
			items []string
		}{
			{"Questions (ask)", study.SuggestedQuestions()},
			{"Topics (dialogue)", study.SuggestedTopics()},
			{"Sections (summary)", study.SuggestedSections()},
		}
		for i, g := range groups {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, headerStyle.Render(g.title))
			for n, item := range g.items {
				fmt.Fprintf(out, "%d. %s\n", n+1, item)
			}
		}
	},
}

// newAssistant wires the embedder, generator and persisted index for the
// tutoring commands.
func newAssistant(cfg *appconfig.Config) (*study.Assistant, error) {
	if err := cfg.Generation.Validate(); err != nil {
		return nil, err
	}
	embedder, err := providerfactory.NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	generator, err := providerfactory.NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	index, err := loadIndex(cfg, embedder)
	if err != nil {
		return nil, err
	}
	return study.NewAssistant(rag.NewRetriever(index, embedder), generator,
		study.WithInstructions(cfg.Generation.Instructions)), nil
}

func printSources(out io.Writer, sources []study.SourceInfo) {
	fmt.Fprintln(out, headerStyle.Render("Sources"))
	for _, src := range sources {
		fmt.Fprintf(out, "%s %s\n",
			sourceStyle.Render(fmt.Sprintf("[%d] %s · %s", src.Number, src.Type, src.SourceName)),
			scoreStyle.Render(fmt.Sprintf("%.4f", src.SimilarityScore)))
		if src.VideoURL != "" {
			fmt.Fprintln(out, metaStyle.Render("    "+src.VideoURL))
		}
		fmt.Fprintln(out, metaStyle.Render(util.Indent(util.Wrap(src.TextPreview, wrapWidth), "    ")))
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	askCmd.Flags().IntVar(&askK, "k", 0, "number of chunks used as context (defaults to topK)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer and sources as JSON")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(suggestCmd)
}
