// Package controller runs one auto-signoff pass for a pull request.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/andywolf/armsignoff/internal/cloud/gcp"
	"github.com/andywolf/armsignoff/internal/events"
	"github.com/andywolf/armsignoff/internal/labeler"
	"github.com/andywolf/armsignoff/internal/signoff"
	"github.com/google/uuid"
)

// Collector builds the snapshot a decision is computed from.
type Collector interface {
	Collect(ctx context.Context, pr signoff.PullRequest) (signoff.DecisionInput, error)
}

// Outcome is the record of one pass.
type Outcome struct {
	RunID   string                 `json:"run_id" yaml:"run_id"`
	Input   signoff.DecisionInput  `json:"input" yaml:"input"`
	Result  signoff.DecisionResult `json:"result" yaml:"result"`
	Applied *labeler.Applied       `json:"applied,omitempty" yaml:"applied,omitempty"`
}

// Controller wires the collector, the decision policy and the labeler.
type Controller struct {
	collector Collector
	policy    signoff.Policy
	mutator   labeler.Mutator // nil disables applying
	logger    gcp.Logger
	sink      events.Sink // optional decision journal
	runID     string
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithMutator enables applying decisions through m.
func WithMutator(m labeler.Mutator) Option {
	return func(c *Controller) {
		c.mutator = m
	}
}

// WithSink records every decision to sink.
func WithSink(sink events.Sink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(c *Controller) {
		c.runID = id
	}
}

// New creates a controller. Each controller carries a fresh run ID that is
// attached to every log entry it writes.
func New(collector Collector, policy signoff.Policy, logger gcp.Logger, opts ...Option) (*Controller, error) {
	if collector == nil {
		return nil, fmt.Errorf("collector is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	c := &Controller{
		collector: collector,
		policy:    policy,
		logger:    logger,
		runID:     uuid.NewString(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RunID returns the correlation ID of this controller's passes.
func (c *Controller) RunID() string {
	return c.runID
}

// Run collects signals for pr, computes the decision and, when apply is set
// and a mutator is configured, applies it. A collection failure aborts the
// pass without a decision.
func (c *Controller) Run(ctx context.Context, pr signoff.PullRequest, apply bool) (*Outcome, error) {
	if apply && c.mutator == nil {
		return nil, fmt.Errorf("apply requested but no label mutator is configured")
	}
	if err := pr.Validate(); err != nil {
		return nil, err
	}

	c.logInfo(pr, "collecting signals for %s/%s#%d at %s", pr.Owner, pr.Repo, pr.IssueNumber, pr.HeadSHA)
	in, err := c.collector.Collect(ctx, pr)
	if err != nil {
		c.logError(pr, "failed to collect signals: %v", err)
		return nil, fmt.Errorf("failed to collect signals: %w", err)
	}
	c.logInfo(pr, "collected %d labels, %d check results, analysis present=%t",
		len(in.Labels), len(in.Checks), in.Analysis != nil)

	result, err := c.policy.Decide(in)
	if err != nil {
		c.logError(pr, "invalid decision input: %v", err)
		return nil, err
	}
	c.logDecision(pr, result)

	outcome := &Outcome{RunID: c.runID, Input: in, Result: result}
	if !apply {
		c.record(pr, outcome)
		return outcome, nil
	}

	applied, err := labeler.Apply(ctx, c.mutator, result, in.Labels)
	if err != nil {
		c.logError(pr, "failed to apply labels (added %v, removed %v before failure): %v",
			applied.Added, applied.Removed, err)
		return nil, err
	}
	outcome.Applied = &applied
	c.logInfo(pr, "applied labels: added %v, removed %v", applied.Added, applied.Removed)
	c.record(pr, outcome)

	return outcome, nil
}

// record writes the outcome to the journal. A journal failure does not fail
// the pass.
func (c *Controller) record(pr signoff.PullRequest, outcome *Outcome) {
	if c.sink == nil {
		return
	}

	event := events.NewDecisionEvent(c.runID, pr, outcome.Result, c.now())
	if outcome.Applied != nil {
		event.Applied = true
		event.Added = outcome.Applied.Added
		event.Removed = outcome.Applied.Removed
	}
	if err := c.sink.WriteOne(event); err != nil {
		c.logWarning(pr, "failed to record decision: %v", err)
	}
}
