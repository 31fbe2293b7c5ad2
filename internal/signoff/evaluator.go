package signoff

import "time"

// Default names used by the live pipeline.
const (
	DefaultLintCheck        = "Swagger LintDiff"
	DefaultConsistencyCheck = "Swagger Avocado"
	DefaultAnalysisWorkflow = "ARM Auto SignOff - Analyze Code"
)

// Policy holds the fixed inputs of an evaluation.
type Policy struct {
	// LintCheck and ConsistencyCheck are the required commit status contexts.
	// Names must match exactly.
	LintCheck        string
	ConsistencyCheck string

	// RequiredLabels must all be present and BlockingLabels must all be
	// absent for the PR to qualify. Both are empty by default.
	RequiredLabels []string
	BlockingLabels []string
}

// DefaultPolicy returns the policy used by the live pipeline, without a label gate.
func DefaultPolicy() Policy {
	return Policy{
		LintCheck:        DefaultLintCheck,
		ConsistencyCheck: DefaultConsistencyCheck,
	}
}

// Qualification is the tri-state result for one auto-signoff path.
type Qualification int

const (
	Unknown Qualification = iota
	Disqualified
	Qualified
)

func (q Qualification) String() string {
	switch q {
	case Qualified:
		return "qualified"
	case Disqualified:
		return "disqualified"
	default:
		return "unknown"
	}
}

type qualifications struct {
	incremental Qualification
	trivial     Qualification
}

type checksVerdict int

const (
	checksPending checksVerdict = iota
	checksFailed
	checksPassed
)

// ChecksRequired reports whether the decision for this outcome depends on the
// commit statuses at all. Collectors use it to skip the status fetch.
func ChecksRequired(outcome *AnalysisOutcome) bool {
	return outcome != nil && (outcome.IncrementalTypeSpec || outcome.IsTrivial)
}

// evaluate derives both qualifications. Order: analysis presence, analysis
// flags, label gate, then the required checks.
func (p Policy) evaluate(in DecisionInput, labels labelSet) (qualifications, Reason) {
	none := qualifications{incremental: Disqualified, trivial: Disqualified}

	if in.Analysis == nil {
		return none, ReasonAnalysisUnavailable
	}
	if !ChecksRequired(in.Analysis) {
		return none, ReasonNotEligible
	}
	if !p.gateOpen(labels) {
		return none, ReasonLabelGate
	}

	switch p.checks(in.Checks) {
	case checksFailed:
		return none, ReasonChecksFailed
	case checksPending:
		return qualifications{
			incremental: pendingIf(in.Analysis.IncrementalTypeSpec),
			trivial:     pendingIf(in.Analysis.IsTrivial),
		}, ReasonChecksPending
	}

	q := qualifications{
		incremental: qualifiedIf(in.Analysis.IncrementalTypeSpec),
		trivial:     qualifiedIf(in.Analysis.IsTrivial),
	}
	if q.incremental == Qualified {
		return q, ReasonIncrementalTypeSpec
	}
	return q, ReasonTrivial
}

// checks reduces the statuses to the latest per required context. A failure
// on either context wins over a missing or pending one.
func (p Policy) checks(results []CheckResult) checksVerdict {
	required := []string{p.LintCheck, p.ConsistencyCheck}
	latest := LatestByKey(results,
		func(r CheckResult) string { return r.Context },
		func(r CheckResult) time.Time { return r.UpdatedAt },
		func(ctx string) bool { return ctx == p.LintCheck || ctx == p.ConsistencyCheck },
	)

	verdict := checksPassed
	for _, name := range required {
		result, ok := latest[name]
		switch {
		case !ok || !result.State.Terminal():
			verdict = checksPending
		case result.State != CheckSuccess:
			return checksFailed
		}
	}
	return verdict
}

func (p Policy) gateOpen(labels labelSet) bool {
	for _, name := range p.RequiredLabels {
		if !labels.has(name) {
			return false
		}
	}
	for _, name := range p.BlockingLabels {
		if labels.has(name) {
			return false
		}
	}
	return true
}

func qualifiedIf(flag bool) Qualification {
	if flag {
		return Qualified
	}
	return Disqualified
}

func pendingIf(flag bool) Qualification {
	if flag {
		return Unknown
	}
	return Disqualified
}
