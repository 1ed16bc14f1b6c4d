package studyrag

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/studyrag/internal/providerfactory"
	"github.com/mwiater/studyrag/internal/rag"
)

var (
	indexForce      bool
	indexChunksFile string
)

var indexCmd = &cobra.Command{
	Use:         "index",
	Annotations: map[string]string{validateAnnotation: validateAll},
	Short:       "Embed the chunks file and persist the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		out := cmd.OutOrStdout()

		index := rag.NewIndex(cfg.Store.Dir)
		if index.Exists() && !indexForce {
			fmt.Fprintf(out, "Index already exists in %s (use --force to rebuild)\n", cfg.Store.Dir)
			return nil
		}

		chunksFile := cfg.Corpus.ChunksFile
		if strings.TrimSpace(indexChunksFile) != "" {
			chunksFile = indexChunksFile
		}
		chunks, err := rag.ReadChunkFile(chunksFile)
		if err != nil {
			return err
		}

		embedder, err := providerfactory.NewEmbedder(cfg)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Embedding %d chunks with %s...\n", len(chunks), embedder.Name())
		if err := index.Build(cmd.Context(), chunks, embedder, cfg.Embedding.BatchSize); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %d vectors (dim %d) saved to %s\n", okColor("Indexed"), index.Len(), index.Dimension(), cfg.Store.Dir)
		printMetrics(out, cfg)
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "rebuild even if an index already exists")
	indexCmd.Flags().StringVar(&indexChunksFile, "chunks", "", "chunks file to embed (defaults to corpus.chunksFile)")
	rootCmd.AddCommand(indexCmd)
}
