package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/andywolf/armsignoff/internal/cloud/gcp"
	"github.com/andywolf/armsignoff/internal/collector"
	"github.com/andywolf/armsignoff/internal/config"
	"github.com/andywolf/armsignoff/internal/controller"
	"github.com/andywolf/armsignoff/internal/events"
	"github.com/andywolf/armsignoff/internal/github"
	"github.com/andywolf/armsignoff/internal/signoff"
	"github.com/andywolf/armsignoff/internal/version"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Decide (and optionally apply) sign-off labels for a pull request",
	Long: `Collect the signals for a pull request head commit from GitHub, compute the
label decision and print it. With --apply the decision is applied to the PR.

Authentication uses github.token (or GITHUB_TOKEN), or GitHub App credentials
(github.app_id, github.installation_id and github.private_key_file or
github.private_key_secret).

Examples:
  armsignoff decide --repo Azure/azure-rest-api-specs --pr 123 --sha 1a2b3c
  armsignoff decide --pr 123 --sha 1a2b3c --apply --output yaml`,
	Args: cobra.NoArgs,
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().String("repo", "", "GitHub repository (owner/repo, default $GITHUB_REPOSITORY)")
	decideCmd.Flags().Int("pr", 0, "Pull request number")
	decideCmd.Flags().String("sha", "", "Pull request head commit SHA")
	decideCmd.Flags().Bool("apply", false, "Apply the decided label changes")
	decideCmd.Flags().StringP("output", "o", outputJSON, "Output format (json, yaml)")
	_ = decideCmd.MarkFlagRequired("pr")
	_ = decideCmd.MarkFlagRequired("sha")

	decideCmd.Flags().String("journal", "", "Directory of the JSONL decision journal (disabled when empty)")

	_ = viper.BindPFlag("github.repository", decideCmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("journal.dir", decideCmd.Flags().Lookup("journal"))
}

func runDecide(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateForAPI(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	prNumber, _ := cmd.Flags().GetInt("pr")
	sha, _ := cmd.Flags().GetString("sha")
	apply, _ := cmd.Flags().GetBool("apply")
	output, _ := cmd.Flags().GetString("output")

	owner, repo, err := cfg.OwnerRepo()
	if err != nil {
		return err
	}

	tokens, err := newTokenSource(ctx, cfg)
	if err != nil {
		return err
	}

	client, err := github.NewClient(owner, repo, tokens,
		github.WithBaseURL(cfg.GitHub.APIURL),
		github.WithRateLimit(cfg.GitHub.RequestsPerSecond),
	)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	runID := uuid.NewString()
	labels := version.Labels()
	labels["component"] = "armsignoff"
	labels["run_id"] = runID
	logger, err := gcp.NewLogger(ctx, cfg.Logging.GCPProject, cfg.Logging.LogID, labels, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = logger.Flush()
		_ = logger.Close()
	}()

	opts := []controller.Option{
		controller.WithMutator(client),
		controller.WithRunID(runID),
	}
	if cfg.Journal.Dir != "" {
		sink, err := events.NewFileSink(cfg.Journal.Dir)
		if err != nil {
			return err
		}
		defer func() { _ = sink.Close() }()
		opts = append(opts, controller.WithSink(sink))
	}

	ctrl, err := controller.New(
		collector.New(client, cfg.Signoff.AnalysisWorkflow),
		cfg.Policy(),
		logger,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	outcome, err := ctrl.Run(ctx, signoff.PullRequest{
		Owner:       owner,
		Repo:        repo,
		IssueNumber: prNumber,
		HeadSHA:     sha,
	}, apply)
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), output, outcome)
}

// newTokenSource returns a static token source, or an App installation token
// source when App credentials are configured.
func newTokenSource(ctx context.Context, cfg *config.Config) (github.TokenSource, error) {
	if cfg.GitHub.AppID == 0 {
		return github.StaticToken(cfg.GitHub.Token), nil
	}

	key, err := loadPrivateKey(ctx, cfg)
	if err != nil {
		return nil, err
	}

	signer, err := github.NewAppSigner(strconv.FormatInt(cfg.GitHub.AppID, 10), key)
	if err != nil {
		return nil, fmt.Errorf("failed to create App signer: %w", err)
	}

	tokens, err := github.NewInstallationTokenSource(signer, cfg.GitHub.InstallationID,
		github.WithInstallationBaseURL(cfg.GitHub.APIURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token source: %w", err)
	}
	return tokens, nil
}

func loadPrivateKey(ctx context.Context, cfg *config.Config) ([]byte, error) {
	if cfg.GitHub.PrivateKeyFile != "" {
		key, err := os.ReadFile(cfg.GitHub.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file: %w", err)
		}
		return key, nil
	}

	sm, err := gcp.NewSecretManagerClient(ctx, cfg.Logging.GCPProject)
	if err != nil {
		return nil, err
	}
	defer sm.Close()

	key, err := sm.FetchSecret(ctx, cfg.GitHub.PrivateKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch private key secret: %w", err)
	}
	return []byte(key), nil
}
