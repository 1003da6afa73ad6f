package cmd

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/spf13/cobra"
)

const sampleKeywords = 6

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories of the taxonomy in match order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tax, err := loadTaxonomy(cfg)
		if err != nil {
			return err
		}

		tbl := table.NewWriter()
		tbl.SetOutputMirror(cmd.OutOrStdout())
		tbl.SetStyle(table.StyleLight)
		tbl.AppendHeader(table.Row{"#", "Category", "Keywords", "Topics", "Sample keywords"})
		for i, c := range tax {
			sample := c.Keywords
			if len(sample) > sampleKeywords {
				sample = sample[:sampleKeywords]
			}
			tbl.AppendRow(table.Row{i + 1, c.Name, len(c.Keywords), len(c.Topics), strings.Join(sample, ", ")})
		}
		tbl.AppendFooter(table.Row{"", "Fallback: " + domain.OtherCategory})

		if markdown, _ := cmd.Flags().GetBool("markdown"); markdown {
			tbl.RenderMarkdown()
		} else {
			tbl.Render()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.Flags().Bool("markdown", false, "Print the table as Markdown")
}
