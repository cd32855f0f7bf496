package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/c2cradar/internal/secrets"
)

var secretsAccount string

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage credentials in the OS keychain",
}

var secretsSetCmd = &cobra.Command{
	Use:   "set-email-password",
	Short: "Store the SMTP password in the OS keychain",
	Long:  "Reads the SMTP password from stdin and stores it under email.keyring_account (or --account).",
	Example: `  c2cradar secrets set-email-password --account me@example.com
  printf '%s' "$APP_PASSWORD" | c2cradar secrets set-email-password`,
	Args: cobra.NoArgs,
	RunE: runSecretsSet,
}

var secretsDeleteCmd = &cobra.Command{
	Use:   "delete-email-password",
	Short: "Remove the SMTP password from the OS keychain",
	Args:  cobra.NoArgs,
	RunE:  runSecretsDelete,
}

func init() {
	secretsCmd.PersistentFlags().StringVar(&secretsAccount, "account", "", "keychain account (default: email.keyring_account)")
	secretsCmd.AddCommand(secretsSetCmd, secretsDeleteCmd)
	rootCmd.AddCommand(secretsCmd)
}

// keyringAccount prefers --account and falls back to the config file, which
// may be missing when the password is stored before first setup.
func keyringAccount() (string, error) {
	if secretsAccount != "" {
		return secretsAccount, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", fmt.Errorf("no --account given and config unavailable: %w", err)
	}
	if cfg.Email.KeyringAccount == "" {
		return "", fmt.Errorf("no --account given and email.keyring_account is not set")
	}
	return cfg.Email.KeyringAccount, nil
}

func runSecretsSet(cmd *cobra.Command, args []string) error {
	account, err := keyringAccount()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "SMTP password for %s: ", account)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	if err := secrets.SetSMTPPassword(account, strings.TrimRight(line, "\r\n")); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "stored")
	return nil
}

func runSecretsDelete(cmd *cobra.Command, args []string) error {
	account, err := keyringAccount()
	if err != nil {
		return err
	}
	if err := secrets.DeleteSMTPPassword(account); err != nil {
		return fmt.Errorf("delete keyring entry %s: %w", account, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "removed password for %s\n", account)
	return nil
}
