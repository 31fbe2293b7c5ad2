// Package signoff decides which ARM auto-signoff labels a pull request should
// carry. It is a pure function of a DecisionInput snapshot: it performs no I/O,
// keeps no state between calls, and never logs.
package signoff

import (
	"errors"
	"time"
)

// ManagedLabel is one of the three labels this engine owns.
type ManagedLabel string

const (
	ArmSignedOff                   ManagedLabel = "ARMSignedOff"
	ArmAutoSignedOffIncrementalTSP ManagedLabel = "ARMAutoSignedOff-IncrementalTSP"
	ArmAutoSignedOffTrivial        ManagedLabel = "ARMAutoSignedOff-Trivial"
)

// ManagedLabels lists every managed label in a stable order.
var ManagedLabels = []ManagedLabel{
	ArmSignedOff,
	ArmAutoSignedOffIncrementalTSP,
	ArmAutoSignedOffTrivial,
}

// LabelAction is the change required for a single managed label.
// None means "leave as-is", not "absent".
type LabelAction string

const (
	ActionNone   LabelAction = "none"
	ActionAdd    LabelAction = "add"
	ActionRemove LabelAction = "remove"
)

// CheckState is the reported state of a commit status.
type CheckState string

const (
	CheckSuccess CheckState = "success"
	CheckFailure CheckState = "failure"
	CheckError   CheckState = "error"
	CheckPending CheckState = "pending"
)

// ParseCheckState maps a commit status state string to a CheckState.
// Unrecognized states report ok=false.
func ParseCheckState(s string) (CheckState, bool) {
	switch CheckState(s) {
	case CheckSuccess, CheckFailure, CheckError, CheckPending:
		return CheckState(s), true
	}
	return "", false
}

// Terminal reports whether the state is final.
func (s CheckState) Terminal() bool {
	return s == CheckSuccess || s == CheckFailure || s == CheckError
}

// CheckResult is one reported status for a named check context. Several
// results may share a context; the most recent by UpdatedAt is authoritative.
type CheckResult struct {
	Context   string     `json:"context" yaml:"context"`
	State     CheckState `json:"state" yaml:"state"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
}

// AnalysisOutcome is the output of the latest successfully completed
// analysis workflow run. A nil *AnalysisOutcome means the outcome is absent.
type AnalysisOutcome struct {
	IncrementalTypeSpec bool `json:"incremental_typespec" yaml:"incremental_typespec"`
	IsTrivial           bool `json:"is_trivial" yaml:"is_trivial"`
}

// PullRequest identifies the pull request under evaluation.
type PullRequest struct {
	Owner       string `json:"owner" yaml:"owner"`
	Repo        string `json:"repo" yaml:"repo"`
	IssueNumber int    `json:"issue_number" yaml:"issue_number"`
	HeadSHA     string `json:"head_sha" yaml:"head_sha"`
}

// DecisionInput is the snapshot a single decision is computed from.
type DecisionInput struct {
	PullRequest PullRequest      `json:"pull_request" yaml:"pull_request"`
	Labels      []string         `json:"labels" yaml:"labels"`
	Checks      []CheckResult    `json:"checks" yaml:"checks"`
	Analysis    *AnalysisOutcome `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// Reason explains a decision. It is informational only.
type Reason string

const (
	ReasonIncrementalTypeSpec Reason = "incremental-typespec"
	ReasonTrivial             Reason = "trivial"
	ReasonAnalysisUnavailable Reason = "analysis-unavailable"
	ReasonNotEligible         Reason = "not-eligible"
	ReasonLabelGate           Reason = "label-gate"
	ReasonChecksFailed        Reason = "checks-failed"
	ReasonChecksPending       Reason = "checks-pending"
)

// DecisionResult always carries an action for each of the three managed labels.
type DecisionResult struct {
	HeadSHA      string                       `json:"head_sha" yaml:"head_sha"`
	IssueNumber  int                          `json:"issue_number" yaml:"issue_number"`
	LabelActions map[ManagedLabel]LabelAction `json:"label_actions" yaml:"label_actions"`
	Reason       Reason                       `json:"reason" yaml:"reason"`
}

// ErrInvalidInput is wrapped by every error returned for a malformed DecisionInput.
var ErrInvalidInput = errors.New("invalid decision input")
