// Package events records one DecisionEvent per signoff pass so decisions can
// be audited after the fact.
package events

import (
	"time"

	"github.com/andywolf/armsignoff/internal/signoff"
)

// DecisionEvent is a journal record of one pass.
type DecisionEvent struct {
	Timestamp    time.Time                                    `json:"timestamp"`
	RunID        string                                       `json:"run_id"`
	Repo         string                                       `json:"repo"`
	IssueNumber  int                                          `json:"issue_number"`
	HeadSHA      string                                       `json:"head_sha"`
	Reason       signoff.Reason                               `json:"reason"`
	LabelActions map[signoff.ManagedLabel]signoff.LabelAction `json:"label_actions"`
	Applied      bool                                         `json:"applied"`
	Added        []string                                     `json:"added,omitempty"`
	Removed      []string                                     `json:"removed,omitempty"`
}

// NewDecisionEvent builds the record for result computed for pr.
func NewDecisionEvent(runID string, pr signoff.PullRequest, result signoff.DecisionResult, now time.Time) DecisionEvent {
	return DecisionEvent{
		Timestamp:    now.UTC(),
		RunID:        runID,
		Repo:         pr.Owner + "/" + pr.Repo,
		IssueNumber:  result.IssueNumber,
		HeadSHA:      result.HeadSHA,
		Reason:       result.Reason,
		LabelActions: result.LabelActions,
	}
}

// Sink receives decision events.
type Sink interface {
	WriteOne(event DecisionEvent) error
}
