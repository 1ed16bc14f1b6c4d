package studyrag

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/studyrag/internal/providerfactory"
	"github.com/mwiater/studyrag/internal/rag"
	"github.com/mwiater/studyrag/internal/util"
)

var (
	searchK       int
	searchContext bool
)

var searchCmd = &cobra.Command{
	Use:         "search <query>",
	Annotations: map[string]string{validateAnnotation: validateAll},
	Short:       "Show the chunks nearest to a query",
	Args:        cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		out := cmd.OutOrStdout()
		query := strings.Join(args, " ")

		embedder, err := providerfactory.NewEmbedder(cfg)
		if err != nil {
			return err
		}
		index, err := loadIndex(cfg, embedder)
		if err != nil {
			return err
		}

		k := searchK
		if k <= 0 {
			k = cfg.TopK
		}
		block, results, err := rag.NewRetriever(index, embedder).RetrieveContext(cmd.Context(), query, k)
		if err != nil {
			return err
		}

		if searchContext {
			fmt.Fprintln(out, block)
			return nil
		}

		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Top %d of %d chunks for %q", len(results), index.Len(), query)))
		for i, r := range results {
			fmt.Fprintf(out, "\n%s %s\n",
				sourceStyle.Render(fmt.Sprintf("%d. %s", i+1, r.ID)),
				scoreStyle.Render(fmt.Sprintf("score %.4f  distance %.4f", r.SimilarityScore, r.Distance)))
			meta := fmt.Sprintf("%s · %s", r.Type, r.Source)
			if r.VideoURL != "" {
				meta += " · " + r.VideoURL
			}
			fmt.Fprintln(out, metaStyle.Render(meta))
			fmt.Fprintln(out, util.Indent(util.Wrap(r.Text, wrapWidth), "    "))
		}
		printMetrics(out, cfg)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchK, "k", 0, "number of chunks to return (defaults to topK)")
	searchCmd.Flags().BoolVar(&searchContext, "context", false, "print the formatted context block instead of the result list")
	rootCmd.AddCommand(searchCmd)
}
