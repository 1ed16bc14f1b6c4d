package studyrag

import (
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/mwiater/studyrag/internal/appconfig"
)

var showRaw bool

// showCmd represents the show command group
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show various resources",
	Long:  `Show various resources, such as the current configuration.`,
}

// showConfigCmd represents the show config command
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the current configuration",
	Long:  `Display the resolved configuration, with API keys masked.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := GetConfig()
		if showRaw && cfg != nil {
			pp.Fprintln(cmd.OutOrStdout(), cfg.Redacted())
			return
		}
		file := ""
		if cfg != nil {
			file = cfg.ConfigPath
		}
		appconfig.ShowConfig(cmd.OutOrStdout(), file, cfg)
	},
}

func init() {
	showConfigCmd.Flags().BoolVar(&showRaw, "raw", false, "dump the whole config struct")
	showCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(showCmd)
}
