package commands

import (
	"os"

	"cartelera-backend/services/ingest/sources"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Lists the configured scrape sources and validates their configs.",
	Run: func(cmd *cobra.Command, args []string) {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source", "Engine", "Base Url", "Status"})

		for _, cfg := range sources.SiteConfigs() {
			engine := "static"
			if cfg.RequiresJavaScript {
				engine = "browser"
			}
			status := "ok"
			if err := cfg.Validate(); err != nil {
				status = err.Error()
			}
			t.AppendRow(table.Row{cfg.Name, engine, cfg.BaseUrl, status})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
