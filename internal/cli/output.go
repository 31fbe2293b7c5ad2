package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ARMSIGNOFF_GITHUB_TOKEN -> github.token
var envKeyReplacer = strings.NewReplacer(".", "_")

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// writeOutput encodes v to w in the requested format.
func writeOutput(w io.Writer, format string, v interface{}) error {
	switch strings.ToLower(format) {
	case outputJSON, "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (use json or yaml)", format)
	}
}
