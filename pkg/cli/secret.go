package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/aihub/pkg/workflow"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const maxSecretSize = 1 << 20 // 1MB limit for all secret inputs

// isOnlyWhitespace checks if a byte slice contains only Unicode whitespace
// characters. Returns true if empty or whitespace-only.
func isOnlyWhitespace(data []byte) bool {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return false
		}
		if !unicode.IsSpace(r) {
			return false
		}
		i += size
	}
	return true
}

// newSecretCommand creates the secret management command
func newSecretCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets referenced by node configs",
		Long: `Manage named secrets in the system keyring (Keychain on macOS, Credential
Manager on Windows, Secret Service on Linux).

Node configs reference a secret as "secret:<name>", for example
api_key: secret:openai. Exported workflows carry only the reference.`,
	}

	cmd.AddCommand(newSecretSetCommand(e))
	cmd.AddCommand(newSecretGetCommand(e))
	cmd.AddCommand(newSecretDeleteCommand(e))
	cmd.AddCommand(newSecretListCommand(e))

	return cmd
}

func newSecretSetCommand(e *env) *cobra.Command {
	var (
		value    string
		useStdin bool
	)

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret",
		Long: `Store a secret in the system keyring.

Examples:
  # Prompt without echo (recommended for local use)
  aihub secret set openai

  # Read from stdin (recommended for automation)
  printf '%s' "$OPENAI_API_KEY" | aihub secret set openai --stdin

Only trailing CR/LF characters are removed from stdin input. Empty and
whitespace-only values are rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			var secret string
			switch {
			case useStdin:
				input, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxSecretSize+1))
				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}
				if len(input) > maxSecretSize {
					return fmt.Errorf("secret value exceeds maximum size of %d bytes", maxSecretSize)
				}
				trimmed := bytes.TrimRight(input, "\r\n")
				if isOnlyWhitespace(trimmed) {
					return fmt.Errorf("secret value cannot be empty or whitespace")
				}
				secret = string(trimmed)
			case value != "":
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: Using --value flag exposes the secret in shell history.")
				if len(value) > maxSecretSize {
					return fmt.Errorf("secret value exceeds maximum size of %d bytes", maxSecretSize)
				}
				if strings.TrimSpace(value) == "" {
					return fmt.Errorf("secret value cannot be empty or whitespace")
				}
				secret = value
			default:
				fd := int(os.Stdin.Fd())
				if !term.IsTerminal(fd) {
					return fmt.Errorf("stdin is not a terminal; use --stdin to pipe the value")
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Enter value for '%s': ", name)
				input, err := term.ReadPassword(fd)
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("failed to read secret value: %w", err)
				}
				if isOnlyWhitespace(input) {
					return fmt.Errorf("secret value cannot be empty or whitespace")
				}
				secret = string(input)
			}

			if err := e.secrets.Set(name, secret); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Secret '%s' stored\n  Reference it in node configs as %s%s\n", name, workflow.SecretRefPrefix, name)
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Secret value (prompted securely if omitted)")
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read the value from stdin")
	cmd.MarkFlagsMutuallyExclusive("stdin", "value")
	return cmd
}

func newSecretGetCommand(e *env) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Check a secret, printing its value only with --reveal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := e.secrets.Get(args[0])
			if err != nil {
				return err
			}
			if reveal {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), secret)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: set (%d characters)\n", args[0], utf8.RuneCountInString(secret))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the secret value")
	return cmd
}

func newSecretDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.secrets.Delete(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Secret '%s' deleted\n", args[0])
			return nil
		},
	}
}

func newSecretListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List secret names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := e.secrets.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				_, _ = fmt.Fprintln(out, "No secrets stored. Add one with: aihub secret set <name>")
				return nil
			}
			for _, name := range names {
				_, _ = fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
