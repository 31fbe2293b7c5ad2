package signoff

import (
	"fmt"
	"strings"
)

// Decide computes the label actions for a pull request snapshot.
//
// Only malformed identifying fields produce an error; missing or invalid
// signals resolve to a fail-closed decision. Identical input always yields an
// identical result.
func (p Policy) Decide(in DecisionInput) (DecisionResult, error) {
	if err := in.PullRequest.Validate(); err != nil {
		return DecisionResult{}, err
	}

	labels := newLabelSet(in.Labels)
	q, reason := p.evaluate(in, labels)

	return DecisionResult{
		HeadSHA:      in.PullRequest.HeadSHA,
		IssueNumber:  in.PullRequest.IssueNumber,
		LabelActions: resolve(q, labels),
		Reason:       reason,
	}, nil
}

// ComputeDecision runs Decide with DefaultPolicy.
func ComputeDecision(in DecisionInput) (DecisionResult, error) {
	return DefaultPolicy().Decide(in)
}

// Validate checks the identifying fields of a pull request.
func (pr PullRequest) Validate() error {
	switch {
	case strings.TrimSpace(pr.Owner) == "":
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	case strings.TrimSpace(pr.Repo) == "":
		return fmt.Errorf("%w: repo is required", ErrInvalidInput)
	case pr.IssueNumber <= 0:
		return fmt.Errorf("%w: issue number must be positive, got %d", ErrInvalidInput, pr.IssueNumber)
	case strings.TrimSpace(pr.HeadSHA) == "":
		return fmt.Errorf("%w: head SHA is required", ErrInvalidInput)
	}
	return nil
}

// Changes returns the managed labels to add and to remove, in ManagedLabels order.
func (r DecisionResult) Changes() (add, remove []ManagedLabel) {
	for _, label := range ManagedLabels {
		switch r.LabelActions[label] {
		case ActionAdd:
			add = append(add, label)
		case ActionRemove:
			remove = append(remove, label)
		}
	}
	return add, remove
}
