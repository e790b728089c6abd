package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/google"
)

func newAuthCmd(root *rootOptions) *cobra.Command {
	var (
		account string
		code    string
		status  bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access for an account",
		Long: `Run the Google OAuth consent flow and store the token used by the gmail
source. The client credentials are read from GOOGLE_CLIENT_ID and
GOOGLE_CLIENT_SECRET.

After granting access the browser is redirected to http://127.0.0.1 and the
page fails to load. Copy the value of the "code" parameter from the address
bar and paste it here, or pass it with --code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if account == "" {
				cfg, err := root.loadConfig()
				if err != nil {
					return err
				}
				account = cfg.Source.Account
			}

			if status {
				if google.HasTokenForAccount(account) {
					fmt.Fprintf(out, "Account %q is authorized (%s)\n", account, google.TokenFilePath(account))
				} else {
					fmt.Fprintf(out, "Account %q is not authorized\n", account)
				}
				return nil
			}

			conf, err := google.OAuthConfig()
			if err != nil {
				return err
			}
			if code == "" {
				fmt.Fprintf(out, "Visit this URL in your browser and grant access:\n\n  %s\n\n", google.AuthURL(conf, uuid.NewString()))
				fmt.Fprint(out, "Authorization code: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && strings.TrimSpace(line) == "" {
					return fmt.Errorf("failed to read authorization code: %w", err)
				}
				code = strings.TrimSpace(line)
			}

			if err := google.Exchange(cmd.Context(), conf, account, code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token for account %q saved to %s\n", account, google.TokenFilePath(account))
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Google account name (default: source.account from the config, usually 'default')")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code, skipping the interactive prompt")
	cmd.Flags().BoolVar(&status, "status", false, "Only report whether the account has a stored token")
	return cmd
}
