package cmd

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/marcus/sheetdash/internal/output"
	"github.com/spf13/cobra"
)

//go:embed guide.md
var guideText string

// filterGuide keeps the intro plus the "## " sections whose heading or body
// contains query, case-insensitively. The second result is the match count.
func filterGuide(text, query string) (string, int) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return text, strings.Count(text, "\n## ")
	}
	parts := strings.Split(text, "\n## ")
	kept := []string{parts[0]}
	for _, sec := range parts[1:] {
		if strings.Contains(strings.ToLower(sec), query) {
			kept = append(kept, sec)
		}
	}
	return strings.Join(kept, "\n## "), len(kept) - 1
}

var guideCmd = &cobra.Command{
	Use:     "guide [search]",
	Aliases: []string{"faq"},
	Short:   "Help and frequently asked questions",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		text, n := filterGuide(guideText, query)
		if n == 0 {
			fmt.Printf("No results found for %q.\n", query)
			return nil
		}
		if raw, _ := cmd.Flags().GetBool("raw"); raw || !interactive() {
			fmt.Print(text)
			return nil
		}
		rendered, err := output.RenderMarkdown(text, output.DocWidth())
		if err != nil {
			fmt.Print(text)
			return nil
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	guideCmd.Flags().Bool("raw", false, "Print markdown without rendering")
	rootCmd.AddCommand(guideCmd)
}
