package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/andywolf/armsignoff/internal/config"
	"github.com/andywolf/armsignoff/internal/signoff"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compute a decision from a saved snapshot",
	Long: `Compute the label decision for a DecisionInput snapshot without calling GitHub.

The snapshot is YAML (or JSON) with pull_request, labels, checks and an
optional analysis block. Use "-" to read it from stdin.

Examples:
  armsignoff evaluate --input snapshot.yaml
  armsignoff evaluate --input - --output yaml < snapshot.yaml`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("input", "i", "", "Snapshot file (\"-\" for stdin)")
	evaluateCmd.Flags().StringP("output", "o", outputJSON, "Output format (json, yaml)")
	_ = evaluateCmd.MarkFlagRequired("input")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")

	in, err := loadSnapshot(input, cmd.InOrStdin())
	if err != nil {
		return err
	}

	result, err := cfg.Policy().Decide(in)
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), output, result)
}

// loadSnapshot decodes a DecisionInput from path, or from stdin when path is "-".
func loadSnapshot(path string, stdin io.Reader) (signoff.DecisionInput, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return signoff.DecisionInput{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var in signoff.DecisionInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return signoff.DecisionInput{}, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return in, nil
}
