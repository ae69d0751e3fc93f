package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatAuto  = "auto"
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// resolveFormat maps the --output flag to a concrete format. auto renders
// tables for terminals and JSON for pipes.
func resolveFormat(cmd *cobra.Command, flag string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(flag)); f {
	case "", formatAuto:
		if isTerminal(cmd.OutOrStdout()) {
			return formatTable, nil
		}
		return formatJSON, nil
	case formatTable, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want auto, table, json, or yaml)", flag)
	}
}

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", formatAuto, "Output format: auto, table, json, or yaml")
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeStructured(cmd *cobra.Command, format string, v any) error {
	if format == formatYAML {
		return writeYAML(cmd, v)
	}
	return writeJSON(cmd, v)
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// formatValue renders a document value for a table cell.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64, bool:
		return fmt.Sprint(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// writeJSONLine encodes v as a single compact JSON line.
func writeJSONLine(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
