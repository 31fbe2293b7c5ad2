package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/andywolf/armsignoff/internal/signoff"
	"github.com/spf13/viper"
)

// Config represents the full armsignoff configuration
type Config struct {
	GitHub  GitHubConfig  `mapstructure:"github"`
	Signoff SignoffConfig `mapstructure:"signoff"`
	Logging LoggingConfig `mapstructure:"logging"`
	Journal JournalConfig `mapstructure:"journal"`
}

// GitHubConfig contains API access settings. Either Token or the App
// credentials (AppID, InstallationID and one private key source) must be set.
type GitHubConfig struct {
	Repository        string  `mapstructure:"repository"` // owner/repo
	APIURL            string  `mapstructure:"api_url"`
	Token             string  `mapstructure:"token"`
	AppID             int64   `mapstructure:"app_id"`
	InstallationID    int64   `mapstructure:"installation_id"`
	PrivateKeyFile    string  `mapstructure:"private_key_file"`
	PrivateKeySecret  string  `mapstructure:"private_key_secret"` // Secret Manager path
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// SignoffConfig contains the decision policy inputs
type SignoffConfig struct {
	AnalysisWorkflow string   `mapstructure:"analysis_workflow"`
	LintCheck        string   `mapstructure:"lint_check"`
	ConsistencyCheck string   `mapstructure:"consistency_check"`
	RequiredLabels   []string `mapstructure:"required_labels"`
	BlockingLabels   []string `mapstructure:"blocking_labels"`
}

// LoggingConfig selects the log destination. With an empty GCPProject logs
// are written as JSON lines to stderr.
type LoggingConfig struct {
	GCPProject string `mapstructure:"gcp_project"`
	LogID      string `mapstructure:"log_id"`
}

// keys lists every config key so that environment variables are honoured by
// Unmarshal even when the key is absent from the config file.
var keys = []string{
	"github.repository",
	"github.api_url",
	"github.token",
	"github.app_id",
	"github.installation_id",
	"github.private_key_file",
	"github.private_key_secret",
	"github.requests_per_second",
	"signoff.analysis_workflow",
	"signoff.lint_check",
	"signoff.consistency_check",
	"signoff.required_labels",
	"signoff.blocking_labels",
	"logging.gcp_project",
	"logging.log_id",
	"journal.dir",
}

// BindEnv binds every config key to its environment variable
// (github.token -> <PREFIX>_GITHUB_TOKEN).
func BindEnv(v *viper.Viper) {
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// JournalConfig enables the JSONL decision journal when Dir is set
type JournalConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load loads configuration from the global viper instance
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from v
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.GitHub.APIURL == "" {
		cfg.GitHub.APIURL = "https://api.github.com"
	}

	// Inside GitHub Actions these are always present
	if cfg.GitHub.Repository == "" {
		cfg.GitHub.Repository = os.Getenv("GITHUB_REPOSITORY")
	}
	if cfg.GitHub.Token == "" && !cfg.usesApp() {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}

	if cfg.GitHub.RequestsPerSecond == 0 {
		cfg.GitHub.RequestsPerSecond = 10
	}

	if cfg.Signoff.AnalysisWorkflow == "" {
		cfg.Signoff.AnalysisWorkflow = signoff.DefaultAnalysisWorkflow
	}
	if cfg.Signoff.LintCheck == "" {
		cfg.Signoff.LintCheck = signoff.DefaultLintCheck
	}
	if cfg.Signoff.ConsistencyCheck == "" {
		cfg.Signoff.ConsistencyCheck = signoff.DefaultConsistencyCheck
	}

	if cfg.Logging.LogID == "" {
		cfg.Logging.LogID = "armsignoff"
	}
}

func (c *Config) usesApp() bool {
	return c.GitHub.AppID != 0 || c.GitHub.InstallationID != 0
}

// Validate validates the settings every command needs
func (c *Config) Validate() error {
	if c.Signoff.LintCheck == c.Signoff.ConsistencyCheck {
		return fmt.Errorf("lint_check and consistency_check must differ (both %q)", c.Signoff.LintCheck)
	}

	for _, required := range c.Signoff.RequiredLabels {
		for _, blocking := range c.Signoff.BlockingLabels {
			if required == blocking {
				return fmt.Errorf("label %q is both required and blocking", required)
			}
		}
	}

	if c.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}

	return nil
}

// ValidateForAPI performs additional validation required before calling GitHub
func (c *Config) ValidateForAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if _, _, err := c.OwnerRepo(); err != nil {
		return err
	}

	if !c.usesApp() {
		if c.GitHub.Token == "" {
			return fmt.Errorf("GitHub token or App credentials are required")
		}
		return nil
	}

	if c.GitHub.AppID == 0 {
		return fmt.Errorf("GitHub App ID is required")
	}
	if c.GitHub.InstallationID == 0 {
		return fmt.Errorf("GitHub App Installation ID is required")
	}
	if c.GitHub.PrivateKeyFile == "" && c.GitHub.PrivateKeySecret == "" {
		return fmt.Errorf("GitHub App private key file or secret path is required")
	}

	return nil
}

// OwnerRepo splits github.repository into owner and repo
func (c *Config) OwnerRepo() (string, string, error) {
	owner, repo, ok := strings.Cut(c.GitHub.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository must be in owner/repo form, got %q", c.GitHub.Repository)
	}
	return owner, repo, nil
}

// Policy returns the decision policy described by the config
func (c *Config) Policy() signoff.Policy {
	return signoff.Policy{
		LintCheck:        c.Signoff.LintCheck,
		ConsistencyCheck: c.Signoff.ConsistencyCheck,
		RequiredLabels:   c.Signoff.RequiredLabels,
		BlockingLabels:   c.Signoff.BlockingLabels,
	}
}
