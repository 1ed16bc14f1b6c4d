package studyrag

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/studyrag/internal/study"
	"github.com/mwiater/studyrag/internal/util"
)

var (
	dialogueExchanges int
	dialogueJSON      bool
)

var dialogueCmd = &cobra.Command{
	Use:         "dialogue <topic>",
	Annotations: map[string]string{validateAnnotation: validateAll},
	Short:       "Generate a Student/Teacher dialogue about a topic",
	Args:        cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		out := cmd.OutOrStdout()

		assistant, err := newAssistant(cfg)
		if err != nil {
			return err
		}
		d, err := assistant.Dialogue(cmd.Context(), strings.Join(args, " "), dialogueExchanges)
		if err != nil {
			return err
		}

		if dialogueJSON {
			return writeJSON(out, d)
		}
		fmt.Fprintln(out, headerStyle.Render(d.Topic))
		if len(d.Exchanges) == 0 {
			fmt.Fprintln(out, util.Wrap(d.Text, wrapWidth))
		}
		for _, ex := range d.Exchanges {
			fmt.Fprintf(out, "\n%s\n%s\n",
				sourceStyle.Render(util.Wrap("Student: "+ex.Student, wrapWidth)),
				util.Wrap("Teacher: "+ex.Teacher, wrapWidth))
		}
		fmt.Fprintln(out)
		printSources(out, d.Sources)
		printMetrics(out, cfg)
		return nil
	},
}

var summaryJSON bool

var summaryCmd = &cobra.Command{
	Use:         "summary [section]",
	Annotations: map[string]string{validateAnnotation: validateAll},
	Short:       "Generate a structured summary of the chapter or a section",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		out := cmd.OutOrStdout()

		assistant, err := newAssistant(cfg)
		if err != nil {
			return err
		}
		s, err := assistant.Summarize(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		if summaryJSON {
			return writeJSON(out, s)
		}
		fmt.Fprintln(out, headerStyle.Render(s.Topic))
		fmt.Fprintln(out, s.Summary)
		fmt.Fprintf(out, "\n%s\n", metaStyle.Render(fmt.Sprintf("Based on %d sources", len(s.Sources))))
		printMetrics(out, cfg)
		return nil
	},
}

func init() {
	dialogueCmd.Flags().IntVar(&dialogueExchanges, "exchanges", study.DefaultExchanges, "number of Student/Teacher exchanges")
	dialogueCmd.Flags().BoolVar(&dialogueJSON, "json", false, "print the dialogue as JSON")
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(dialogueCmd)
	rootCmd.AddCommand(summaryCmd)
}
