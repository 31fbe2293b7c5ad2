// Package collector gathers the pull request signals the signoff engine
// decides on.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/andywolf/armsignoff/internal/github"
	"github.com/andywolf/armsignoff/internal/signoff"
	"golang.org/x/sync/errgroup"
)

// Workflow run status and conclusion that make a run's artifacts usable.
const (
	runStatusCompleted   = "completed"
	runConclusionSuccess = "success"
)

// Source is the subset of the GitHub client the collector reads from.
type Source interface {
	ListLabels(ctx context.Context, issueNumber int) ([]string, error)
	ListCommitStatuses(ctx context.Context, ref string) ([]github.CommitStatus, error)
	ListWorkflowRuns(ctx context.Context, headSHA string) ([]github.WorkflowRun, error)
	ListWorkflowRunArtifacts(ctx context.Context, runID int64) ([]github.Artifact, error)
}

// Collector builds DecisionInput snapshots.
type Collector struct {
	source   Source
	workflow string
}

// New returns a collector reading from source. workflow is the name of the
// analysis workflow; empty selects signoff.DefaultAnalysisWorkflow.
func New(source Source, workflow string) *Collector {
	if workflow == "" {
		workflow = signoff.DefaultAnalysisWorkflow
	}
	return &Collector{source: source, workflow: workflow}
}

// Collect fetches labels, the analysis outcome and, when the outcome makes
// them relevant, the commit statuses. Any fetch failure aborts the snapshot.
func (c *Collector) Collect(ctx context.Context, pr signoff.PullRequest) (signoff.DecisionInput, error) {
	if err := pr.Validate(); err != nil {
		return signoff.DecisionInput{}, err
	}

	in := signoff.DecisionInput{PullRequest: pr}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		labels, err := c.source.ListLabels(gctx, pr.IssueNumber)
		if err != nil {
			return err
		}
		in.Labels = labels
		return nil
	})
	g.Go(func() error {
		outcome, err := c.AnalysisOutcome(gctx, pr.HeadSHA)
		if err != nil {
			return err
		}
		in.Analysis = outcome
		return nil
	})
	if err := g.Wait(); err != nil {
		return signoff.DecisionInput{}, err
	}

	if !signoff.ChecksRequired(in.Analysis) {
		return in, nil
	}

	checks, err := c.CheckResults(ctx, pr.HeadSHA)
	if err != nil {
		return signoff.DecisionInput{}, err
	}
	in.Checks = checks
	return in, nil
}

// AnalysisOutcome returns the outcome of the latest run of the analysis
// workflow for headSHA, or nil when that run has not completed successfully
// or its artifacts are missing or malformed.
func (c *Collector) AnalysisOutcome(ctx context.Context, headSHA string) (*signoff.AnalysisOutcome, error) {
	runs, err := c.source.ListWorkflowRuns(ctx, headSHA)
	if err != nil {
		return nil, err
	}

	var matching []github.WorkflowRun
	for _, run := range runs {
		if run.Name != c.workflow {
			continue
		}
		if run.HeadSHA != "" && run.HeadSHA != headSHA {
			continue
		}
		matching = append(matching, run)
	}

	latest, ok := signoff.Latest(matching, func(r github.WorkflowRun) time.Time { return r.UpdatedAt })
	if !ok {
		return nil, nil
	}
	if latest.Status != runStatusCompleted || latest.Conclusion != runConclusionSuccess {
		return nil, nil
	}

	artifacts, err := c.source.ListWorkflowRunArtifacts(ctx, latest.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		names = append(names, a.Name)
	}
	return signoff.OutcomeFromArtifacts(names), nil
}

// CheckResults converts the commit statuses for ref. Statuses with an
// unrecognized state are dropped.
func (c *Collector) CheckResults(ctx context.Context, ref string) ([]signoff.CheckResult, error) {
	statuses, err := c.source.ListCommitStatuses(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to collect check results: %w", err)
	}

	results := make([]signoff.CheckResult, 0, len(statuses))
	for _, s := range statuses {
		state, ok := signoff.ParseCheckState(s.State)
		if !ok {
			continue
		}
		at := s.UpdatedAt
		if at.IsZero() {
			at = s.CreatedAt
		}
		results = append(results, signoff.CheckResult{Context: s.Context, State: state, UpdatedAt: at})
	}
	return results, nil
}
