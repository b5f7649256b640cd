package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/proofscan/internal/app"
)

var checkPing bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration, credentials and local state",
	Long: `Validates the configuration and checks that the credentials file,
OAuth token, pattern table, prompt template and local database are
usable. With --ping it also contacts Drive, the sink and the language
model.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkPing, "ping", false, "also contact Drive, the sink and the language model")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	a, err := getApplication()
	if err != nil {
		return err
	}

	results := a.Check(cmd.Context(), checkPing)
	for _, r := range results {
		cmd.Printf("%s %s%s\n", checkMark(r.Status), labelStyle.Render(r.Name), r.Detail)
	}
	cmd.Println()

	if app.Failed(results) {
		return errors.New("setup check failed")
	}
	cmd.Println("Setup looks good.")
	return nil
}
