package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/proofscan/internal/adapters/driving/oauth"
)

var (
	authPort      int
	authNoBrowser bool
	authTimeout   time.Duration
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to Google Drive and Sheets",
	Long: `Runs the OAuth consent flow for the installed-app client in the
credentials file and saves the token to the token file. Refreshed tokens
are written back during runs, so this is needed once per machine.

Service account keys need no authorization.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().IntVar(&authPort, "port", 0, "callback port (default: any free port)")
	authCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "print the consent URL instead of opening a browser")
	authCmd.Flags().DurationVar(&authTimeout, "timeout", oauth.DefaultTimeout, "how long to wait for consent")
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, _ []string) error {
	a, err := getApplication()
	if err != nil {
		return err
	}

	open := func(url string) error {
		if authNoBrowser {
			cmd.Printf("Open this URL to authorize proofscan:\n\n  %s\n\n", url)
			return nil
		}
		cmd.Println("Opening browser for authorization...")
		if err := oauth.OpenBrowser(url); err != nil {
			cmd.Printf("Could not open a browser. Open this URL instead:\n\n  %s\n\n", url)
		}
		return nil
	}

	path, err := a.Authorize(cmd.Context(), oauth.FlowOptions{
		Port:    authPort,
		Timeout: authTimeout,
		Open:    open,
	})
	if err != nil {
		return err
	}
	cmd.Printf("Authorized. Token saved to %s\n", path)
	return nil
}
