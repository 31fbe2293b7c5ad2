// Package labeler applies signoff decisions to a pull request.
package labeler

import (
	"context"
	"fmt"

	"github.com/andywolf/armsignoff/internal/signoff"
)

// Mutator is the subset of the GitHub client that changes labels.
type Mutator interface {
	AddLabels(ctx context.Context, issueNumber int, labels []string) error
	RemoveLabel(ctx context.Context, issueNumber int, label string) error
}

// Applied records the label changes actually sent.
type Applied struct {
	Added   []string `json:"added" yaml:"added"`
	Removed []string `json:"removed" yaml:"removed"`
}

// Apply sends the changes in result. Adds are batched into one request; a
// removal is skipped when the label is not in current.
func Apply(ctx context.Context, m Mutator, result signoff.DecisionResult, current []string) (Applied, error) {
	present := make(map[string]bool, len(current))
	for _, name := range current {
		present[name] = true
	}

	var applied Applied
	add, remove := result.Changes()

	for _, label := range remove {
		if !present[string(label)] {
			continue
		}
		if err := m.RemoveLabel(ctx, result.IssueNumber, string(label)); err != nil {
			return applied, fmt.Errorf("failed to apply decision: %w", err)
		}
		applied.Removed = append(applied.Removed, string(label))
	}

	var toAdd []string
	for _, label := range add {
		if !present[string(label)] {
			toAdd = append(toAdd, string(label))
		}
	}
	if len(toAdd) > 0 {
		if err := m.AddLabels(ctx, result.IssueNumber, toAdd); err != nil {
			return applied, fmt.Errorf("failed to apply decision: %w", err)
		}
		applied.Added = toAdd
	}

	return applied, nil
}
