package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kiosk/internal/configstore"
)

func newSecretCommand(ctx *commandContext) *cobra.Command {
	secretCmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage credentials kept outside the kiosk document",
	}

	secretCmd.AddCommand(newSecretListCommand(ctx))
	secretCmd.AddCommand(newSecretSetCommand(ctx))
	secretCmd.AddCommand(newSecretClearCommand(ctx))

	return secretCmd
}

func newSecretListCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List secrets without revealing values",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(cmd, output)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(store *configstore.Store) error {
				entries, err := store.Secrets(cmd.Context())
				if err != nil {
					return err
				}
				if format != formatTable {
					return writeStructured(cmd, format, entries)
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{entry.Name, entry.Path, yesNo(entry.HasValue), last4(entry)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Field", "Set", "Last 4"}, rows))
				return nil
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newSecretSetCommand(ctx *commandContext) *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "set <name> [value]",
		Short: "Store a secret",
		Long:  "Store a secret. Pass --stdin to read the value from standard input instead of the command line.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			switch {
			case fromStdin && len(args) == 2:
				return fmt.Errorf("pass the value as an argument or with --stdin, not both")
			case fromStdin:
				read, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				value = read
			case len(args) == 2:
				value = args[1]
			default:
				return fmt.Errorf("a value is required (use `kiosk secret clear` to remove one)")
			}
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("a value is required (use `kiosk secret clear` to remove one)")
			}
			return ctx.withStore(cmd.Context(), func(store *configstore.Store) error {
				if _, err := store.SetSecret(cmd.Context(), args[0], value); err != nil {
					return describeWriteError(err)
				}
				entry, err := store.Secret(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (ending %s)\n", entry.Name, last4(entry))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the value from standard input")
	return cmd
}

func newSecretClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <name>",
		Short: "Remove a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *configstore.Store) error {
				if _, err := store.ClearSecret(cmd.Context(), args[0]); err != nil {
					return describeWriteError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", args[0])
				return nil
			})
		},
	}
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func last4(entry configstore.SecretStatus) string {
	if entry.Last4 == nil {
		return "-"
	}
	return *entry.Last4
}
