package cli

import (
	"github.com/spf13/cobra"
)

var (
	patternsInit  bool
	patternsForce bool
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show the effective filename pattern table",
	Long: `Lists the patterns used to extract metadata from file names, grouped
by field in priority order. For each field the first matching pattern
wins.

With --init the table is written to the patterns file so it can be
edited. Fields listed in that file replace the built-in patterns for
the same field.`,
	Args: cobra.NoArgs,
	RunE: runPatterns,
}

func init() {
	patternsCmd.Flags().BoolVar(&patternsInit, "init", false, "write the table to the patterns file")
	patternsCmd.Flags().BoolVar(&patternsForce, "force", false, "overwrite an existing patterns file")
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, _ []string) error {
	a, err := getApplication()
	if err != nil {
		return err
	}

	if patternsInit {
		path, err := a.InitPatterns(patternsForce)
		if err != nil {
			return err
		}
		cmd.Printf("Pattern table written to %s\n", path)
		return nil
	}

	cmd.Println(titleStyle.Render("Patterns"))
	for i, spec := range a.Metadata().Patterns() {
		layout := ""
		if spec.Layout != "" {
			layout = mutedStyle.Render(" [" + spec.Layout + "]")
		}
		cmd.Printf("  %2d %s%s%s\n", i+1, labelStyle.Render(string(spec.Field)), spec.Expr, layout)
	}
	return nil
}
