package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

var (
	extractPath string
	extractJSON bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <filename>",
	Short: "Show the metadata derived from a file name",
	Long: `Runs the pattern extractor on a file name without contacting Drive.
Use it to check how a naming convention is read before a full run.`,
	Example: `  proofscan extract dealer_Toyota_2024-03-15_proof_v2_state_CA.pdf
  proofscan extract proof_v3.pdf --path "dealer_Ford/2024_05_01"`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractPath, "path", "", "slash-separated folder path of the file")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := getApplication()
	if err != nil {
		return err
	}

	var parents []string
	if p := strings.Trim(extractPath, "/"); p != "" {
		parents = strings.Split(p, "/")
	}
	rec := a.Metadata().Extract(args[0], parents)

	if extractJSON {
		data, err := json.MarshalIndent(rec.Map(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, f := range domain.Fields {
		value, ok := rec.Get(f)
		if !ok {
			value = mutedStyle.Render("(absent)")
		}
		cmd.Printf("%s%s\n", labelStyle.Render(string(f)), value)
	}
	return nil
}
