package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"kiosk/internal/config"
	"kiosk/internal/configstore"
	"kiosk/internal/document"
	"kiosk/internal/fileutil"
	"kiosk/internal/logging"
	"kiosk/internal/schema"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Daemon configuration and kiosk document utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigGetCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx))
	configCmd.AddCommand(newConfigChecksumCommand(ctx))
	configCmd.AddCommand(newConfigMigrateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample daemon configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set api.token before exposing the API beyond localhost.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the daemon configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if _, err := os.Stat(ctx.configPath); err != nil {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Document: %s\n", cfg.Paths.DocumentPath)
			if err := describeDocument(out, cfg.Paths.DocumentPath); err != nil {
				return err
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// describeDocument reports the schema version and enabled features of the
// document as the daemon would load it. A missing document describes the
// defaults. Fields that do not fit the typed schema are reported but do not
// fail validation.
func describeDocument(out io.Writer, path string) error {
	data, exists, err := fileutil.ReadFileIfExists(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	raw := document.Document{}
	if exists {
		if raw, err = document.Parse(data); err != nil {
			return fmt.Errorf("document at %s is not a JSON object: %w", path, err)
		}
	} else {
		fmt.Fprintln(out, "Document not created yet; defaults apply")
	}
	migrated, _ := schema.NewMigrator(logging.NewNop()).Migrate(raw)
	settings, err := schema.Decode(migrated)
	if err != nil {
		fmt.Fprintf(out, "Document warning: %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "Schema version: %d\n", settings.Version)
	features := enabledFeatures(settings)
	if len(features) == 0 {
		fmt.Fprintln(out, "Enabled features: none")
	} else {
		fmt.Fprintf(out, "Enabled features: %s\n", strings.Join(features, ", "))
	}
	return nil
}

func enabledFeatures(s schema.Settings) []string {
	var features []string
	add := func(on bool, name string) {
		if on {
			features = append(features, name)
		}
	}
	add(s.Layers.Flights.Enabled, "flights")
	add(s.Layers.Ships.Enabled, "ships ("+s.Layers.Ships.Provider+")")
	add(s.Layers.Lightning.Enabled, "lightning")
	add(s.Panels.Weather.Enabled, "weather ("+s.Panels.Weather.Provider+")")
	add(s.Panels.Calendar.Enabled, "calendar panel")
	add(s.Panels.News.Enabled, "news")
	add(s.OpenSky.Enabled, "opensky")
	add(s.Calendar.Enabled, "calendar ("+s.Calendar.Provider+")")
	add(s.AEMET.Enabled, "aemet")
	return features
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show [group]",
		Short: "Print the kiosk document or one group",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(cmd, output)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(store *configstore.Store) error {
				var view map[string]any
				if len(args) == 1 {
					group, ok := store.Group(cmd.Context(), args[0])
					if !ok {
						return fmt.Errorf("unknown group %q", args[0])
					}
					view = group
				} else {
					view = store.Get(cmd.Context()).Document
				}
				if format != formatTable {
					return writeStructured(cmd, format, view)
				}
				prefix := ""
				if len(args) == 1 {
					prefix = args[0]
				}
				rows := flattenRows(prefix, view)
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
				return nil
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newConfigGetCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print one value by dotted path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(cmd, output)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(store *configstore.Store) error {
				value, ok := store.Get(cmd.Context()).Document.Get(args[0])
				if !ok {
					return fmt.Errorf("no value at %q", args[0])
				}
				if _, nested := value.(map[string]any); !nested && format == formatTable {
					fmt.Fprintln(cmd.OutOrStdout(), formatValue(value))
					return nil
				}
				if format == formatTable {
					format = formatJSON
				}
				return writeStructured(cmd, format, value)
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newConfigSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Patch one value by dotted path",
		Long: "Patch one value by dotted path. The value is parsed as JSON when it is valid JSON " +
			"(numbers, booleans, null, arrays, objects) and taken as a string otherwise.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			if path == "" || strings.Contains(path, "..") || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
				return fmt.Errorf("invalid path %q", args[0])
			}
			patch := map[string]any{}
			document.SetPath(patch, path, parseValue(args[1]))
			return ctx.withStore(cmd.Context(), func(store *configstore.Store) error {
				snap, err := store.Patch(cmd.Context(), patch)
				if err != nil {
					return describeWriteError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (checksum %s)\n", path, snap.Checksum)
				return nil
			})
		},
	}
}

func newConfigChecksumCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checksum",
		Short: "Print the document checksum",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *configstore.Store) error {
				fmt.Fprintln(cmd.OutOrStdout(), store.Checksum())
				return nil
			})
		},
	}
}

func newConfigMigrateCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the on-disk document to the current schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			data, exists, err := fileutil.ReadFileIfExists(cfg.Paths.DocumentPath)
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			if !exists {
				fmt.Fprintf(out, "No document at %s; defaults will be written on first use\n", cfg.Paths.DocumentPath)
				return nil
			}
			raw, err := document.Parse(data)
			if err != nil {
				return fmt.Errorf("document at %s is not a JSON object: %w", cfg.Paths.DocumentPath, err)
			}
			_, report := schema.NewMigrator(logging.NewNop()).Migrate(raw)

			if len(report.Outcomes) == 0 {
				fmt.Fprintln(out, "Document is already current")
			} else {
				rows := make([][]string, 0, len(report.Outcomes))
				for _, o := range report.Outcomes {
					rows = append(rows, []string{o.Field, o.Kind.String(), formatValue(o.Old), formatValue(o.New)})
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Change", "Old", "New"}, rows))
			}
			if dryRun {
				fmt.Fprintln(out, "Dry run; document not rewritten")
				return nil
			}
			return ctx.withStore(cmd.Context(), func(store *configstore.Store) error {
				fmt.Fprintf(out, "Document at %s is at schema version %d (checksum %s)\n", store.Path(), schema.Version, store.Checksum())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without rewriting the document")
	return cmd
}

func parseValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err == nil {
		return value
	}
	return raw
}

func flattenRows(prefix string, value map[string]any) [][]string {
	var rows [][]string
	keys := make([]string, 0, len(value))
	for key := range value {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		path := document.JoinPath(prefix, key)
		if nested, ok := value[key].(map[string]any); ok && len(nested) > 0 {
			rows = append(rows, flattenRows(path, nested)...)
			continue
		}
		rows = append(rows, []string{path, formatValue(value[key])})
	}
	return rows
}

// describeWriteError turns a rejected write into a message naming the
// offending fields.
func describeWriteError(err error) error {
	var writeErr *configstore.WriteError
	if !errors.As(err, &writeErr) {
		return err
	}
	switch {
	case errors.Is(err, configstore.ErrMissingCredentials):
		return fmt.Errorf("rejected: required credentials missing: %s", strings.Join(writeErr.Missing, ", "))
	case errors.Is(err, configstore.ErrMalformedInput):
		return fmt.Errorf("rejected: %s", writeErr.Error())
	default:
		return fmt.Errorf("write failed: %w", err)
	}
}
