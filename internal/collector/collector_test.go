package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andywolf/armsignoff/internal/github"
	"github.com/andywolf/armsignoff/internal/signoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analyzeWorkflow = "ARM Auto SignOff - Analyze Code"

type fakeSource struct {
	labels    []string
	statuses  []github.CommitStatus
	runs      []github.WorkflowRun
	artifacts map[int64][]github.Artifact

	labelsErr   error
	statusesErr error
	runsErr     error

	statusCalls   int
	artifactCalls []int64
}

func (f *fakeSource) ListLabels(ctx context.Context, issueNumber int) ([]string, error) {
	return f.labels, f.labelsErr
}

func (f *fakeSource) ListCommitStatuses(ctx context.Context, ref string) ([]github.CommitStatus, error) {
	f.statusCalls++
	return f.statuses, f.statusesErr
}

func (f *fakeSource) ListWorkflowRuns(ctx context.Context, headSHA string) ([]github.WorkflowRun, error) {
	return f.runs, f.runsErr
}

func (f *fakeSource) ListWorkflowRunArtifacts(ctx context.Context, runID int64) ([]github.Artifact, error) {
	f.artifactCalls = append(f.artifactCalls, runID)
	return f.artifacts[runID], nil
}

var testPR = signoff.PullRequest{Owner: "TestOwner", Repo: "TestRepo", IssueNumber: 123, HeadSHA: "abc123"}

func analyzedSource(incremental, trivial string) *fakeSource {
	return &fakeSource{
		runs: []github.WorkflowRun{
			{ID: 444, Name: "Unrelated Workflow", Status: "in_progress"},
			{ID: 456, Name: analyzeWorkflow, Status: "completed", Conclusion: "success"},
		},
		artifacts: map[int64][]github.Artifact{
			456: {
				{Name: "incremental-typespec=" + incremental},
				{Name: "trivial-changes=" + trivial},
			},
		},
	}
}

func TestCollect_AnalysisOutcome(t *testing.T) {
	src := analyzedSource("true", "false")
	src.labels = []string{"ARMReview"}

	in, err := New(src, "").Collect(context.Background(), testPR)
	require.NoError(t, err)

	assert.Equal(t, testPR, in.PullRequest)
	assert.Equal(t, []string{"ARMReview"}, in.Labels)
	require.NotNil(t, in.Analysis)
	assert.True(t, in.Analysis.IncrementalTypeSpec)
	assert.False(t, in.Analysis.IsTrivial)
	assert.Equal(t, []int64{456}, src.artifactCalls)
	assert.Equal(t, 1, src.statusCalls)
}

func TestCollect_SkipsStatusesWhenNotEligible(t *testing.T) {
	src := analyzedSource("false", "false")

	in, err := New(src, "").Collect(context.Background(), testPR)
	require.NoError(t, err)

	require.NotNil(t, in.Analysis)
	assert.Zero(t, src.statusCalls)
	assert.Empty(t, in.Checks)
}

func TestAnalysisOutcome_RunSelection(t *testing.T) {
	older := time.Date(2020, 1, 22, 19, 33, 8, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	okArtifacts := []github.Artifact{{Name: "incremental-typespec=true"}, {Name: "trivial-changes=true"}}

	tests := []struct {
		name      string
		runs      []github.WorkflowRun
		artifacts map[int64][]github.Artifact
		wantNil   bool
	}{
		{
			name:    "no runs",
			wantNil: true,
		},
		{
			name:    "in progress",
			runs:    []github.WorkflowRun{{ID: 456, Name: analyzeWorkflow, Status: "in_progress"}},
			wantNil: true,
		},
		{
			name: "latest run failed",
			runs: []github.WorkflowRun{
				{ID: 456, Name: analyzeWorkflow, Status: "completed", Conclusion: "success", UpdatedAt: older},
				{ID: 789, Name: analyzeWorkflow, Status: "completed", Conclusion: "failure", UpdatedAt: newer},
			},
			artifacts: map[int64][]github.Artifact{456: okArtifacts},
			wantNil:   true,
		},
		{
			name: "latest run succeeded",
			runs: []github.WorkflowRun{
				{ID: 789, Name: analyzeWorkflow, Status: "completed", Conclusion: "failure", UpdatedAt: older},
				{ID: 456, Name: analyzeWorkflow, Status: "completed", Conclusion: "success", UpdatedAt: newer},
			},
			artifacts: map[int64][]github.Artifact{456: okArtifacts},
		},
		{
			name: "run for another commit is ignored",
			runs: []github.WorkflowRun{
				{ID: 456, Name: analyzeWorkflow, HeadSHA: "def456", Status: "completed", Conclusion: "success"},
			},
			artifacts: map[int64][]github.Artifact{456: okArtifacts},
			wantNil:   true,
		},
		{
			name: "only one artifact",
			runs: []github.WorkflowRun{
				{ID: 456, Name: analyzeWorkflow, Status: "completed", Conclusion: "success"},
			},
			artifacts: map[int64][]github.Artifact{456: {{Name: "incremental-typespec=true"}}},
			wantNil:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{runs: tt.runs, artifacts: tt.artifacts}

			outcome, err := New(src, analyzeWorkflow).AnalysisOutcome(context.Background(), "abc123")
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, outcome)
				return
			}
			assert.Equal(t, &signoff.AnalysisOutcome{IncrementalTypeSpec: true, IsTrivial: true}, outcome)
		})
	}
}

func TestCheckResults(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	src := &fakeSource{statuses: []github.CommitStatus{
		{Context: "Swagger LintDiff", State: "success", CreatedAt: created, UpdatedAt: updated},
		{Context: "Swagger Avocado", State: "pending", CreatedAt: created},
		{Context: "Swagger Avocado", State: "weird"},
	}}

	results, err := New(src, "").CheckResults(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, []signoff.CheckResult{
		{Context: "Swagger LintDiff", State: signoff.CheckSuccess, UpdatedAt: updated},
		{Context: "Swagger Avocado", State: signoff.CheckPending, UpdatedAt: created},
	}, results)
}

func TestCollect_FetchErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		src  *fakeSource
	}{
		{"labels", &fakeSource{labelsErr: boom}},
		{"runs", &fakeSource{runsErr: boom}},
		{"statuses", func() *fakeSource {
			s := analyzedSource("true", "false")
			s.statusesErr = boom
			return s
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := New(tt.src, "").Collect(context.Background(), testPR)
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Empty(t, in.PullRequest.HeadSHA, "no partial snapshot on failure")
		})
	}
}

func TestCollect_InvalidPullRequest(t *testing.T) {
	_, err := New(&fakeSource{}, "").Collect(context.Background(), signoff.PullRequest{})
	assert.ErrorIs(t, err, signoff.ErrInvalidInput)
}

// End-to-end with the engine: the same signals the live workflow sees.
func TestCollectAndDecide(t *testing.T) {
	day1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	tests := []struct {
		name   string
		state  string
		labels []string
		want   map[signoff.ManagedLabel]signoff.LabelAction
	}{
		{
			name:   "error",
			state:  "error",
			labels: []string{"ARMReview", "ARMAutoSignedOff-IncrementalTSP"},
			want: map[signoff.ManagedLabel]signoff.LabelAction{
				signoff.ArmSignedOff:                   signoff.ActionRemove,
				signoff.ArmAutoSignedOffIncrementalTSP: signoff.ActionRemove,
				signoff.ArmAutoSignedOffTrivial:        signoff.ActionRemove,
			},
		},
		{
			name:   "pending",
			state:  "pending",
			labels: []string{"ARMReview"},
			want: map[signoff.ManagedLabel]signoff.LabelAction{
				signoff.ArmSignedOff:                   signoff.ActionNone,
				signoff.ArmAutoSignedOffIncrementalTSP: signoff.ActionNone,
				signoff.ArmAutoSignedOffTrivial:        signoff.ActionNone,
			},
		},
		{
			name:   "success",
			state:  "success",
			labels: []string{"ARMReview"},
			want: map[signoff.ManagedLabel]signoff.LabelAction{
				signoff.ArmSignedOff:                   signoff.ActionAdd,
				signoff.ArmAutoSignedOffIncrementalTSP: signoff.ActionAdd,
				signoff.ArmAutoSignedOffTrivial:        signoff.ActionRemove,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := analyzedSource("true", "false")
			src.labels = tt.labels
			src.statuses = []github.CommitStatus{
				{Context: "Swagger Avocado", State: "success", UpdatedAt: day1},
				{Context: "Swagger LintDiff", State: "pending", UpdatedAt: day1},
				{Context: "Swagger LintDiff", State: tt.state, UpdatedAt: day2},
			}

			in, err := New(src, "").Collect(context.Background(), testPR)
			require.NoError(t, err)
			result, err := signoff.ComputeDecision(in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.LabelActions)
		})
	}
}
