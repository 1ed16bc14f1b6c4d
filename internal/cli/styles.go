package studyrag

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/mwiater/studyrag/internal/appconfig"
	"github.com/mwiater/studyrag/internal/logging"
	"github.com/mwiater/studyrag/internal/metrics"
	"github.com/mwiater/studyrag/internal/providers"
	"github.com/mwiater/studyrag/internal/rag"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	answerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	okColor   = color.New(color.FgGreen).SprintFunc()
	warnColor = color.New(color.FgYellow).SprintFunc()
	errColor  = color.New(color.FgRed).SprintFunc()
)

// wrapWidth is the column width used when printing chunk text.
const wrapWidth = 88

// loadIndex opens the persisted index for cfg and warns when it was built
// with a different embedding model than the one configured now.
func loadIndex(cfg *appconfig.Config, embedder providers.Embedder) (*rag.Index, error) {
	index := rag.NewIndex(cfg.Store.Dir)
	if err := index.Load(); err != nil {
		if rag.IsMissing(err) {
			return nil, fmt.Errorf("no index in %s, run `studyrag index` first: %w", cfg.Store.Dir, err)
		}
		return nil, err
	}
	if model := index.Model(); model != "" && model != embedder.Name() {
		logging.LogWarn("[INDEX] index built with %s but %s is configured; similarity scores will be meaningless", model, embedder.Name())
	}
	logging.LogEvent("[INDEX] loaded %d vectors (dim %d) build %s", index.Len(), index.Dimension(), index.BuildID())
	return index, nil
}

func printMetrics(out io.Writer, cfg *appconfig.Config) {
	if cfg == nil || !cfg.Metrics {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Backend metrics"))
	fmt.Fprintln(out, metrics.GetInstance(cfg.MetricsFilePath()).Summary())
}
