package studyrag

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/studyrag/internal/ingest"
	"github.com/mwiater/studyrag/internal/rag"
)

var ingestCmd = &cobra.Command{
	Use:         "ingest",
	Annotations: map[string]string{validateAnnotation: validateChunking},
	Short:       "Extract, clean and segment the PDF and transcripts into the chunks file",
	Long: `Reads every PDF and transcript listed under "corpus" in the config, splits
them into overlapping chunks and writes the combined list to corpus.chunksFile.
Sources that cannot be read are reported and skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		out := cmd.OutOrStdout()

		ingester, err := ingest.New(cfg.Chunking)
		if err != nil {
			return err
		}
		report, err := ingester.Run(cmd.Context(), cfg.Corpus)
		for _, src := range report.Sources {
			if src.Skipped() {
				fmt.Fprintf(out, "%s %s: %v\n", errColor("skip"), src.Path, src.Err)
				continue
			}
			fmt.Fprintf(out, "%s %s (%s): %d chunks\n", okColor("ok"), src.Name, src.Type, src.Chunks)
		}
		if err != nil {
			return err
		}

		if err := rag.WriteChunkFile(cfg.Corpus.ChunksFile, report.Chunks); err != nil {
			return err
		}
		summary := fmt.Sprintf("Wrote %d chunks from %d sources to %s", len(report.Chunks), len(report.Sources)-report.SkippedCount(), cfg.Corpus.ChunksFile)
		if n := report.SkippedCount(); n > 0 {
			summary += warnColor(fmt.Sprintf(" (%d skipped)", n))
		}
		fmt.Fprintln(out, summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
