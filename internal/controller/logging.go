package controller

import (
	"fmt"
	"strconv"

	"github.com/andywolf/armsignoff/internal/cloud/gcp"
	"github.com/andywolf/armsignoff/internal/signoff"
)

func (c *Controller) labels(pr signoff.PullRequest) map[string]string {
	return map[string]string{
		"run_id":   c.runID,
		"repo":     pr.Owner + "/" + pr.Repo,
		"pr":       strconv.Itoa(pr.IssueNumber),
		"head_sha": pr.HeadSHA,
	}
}

// logInfo logs at INFO level with the pass labels
func (c *Controller) logInfo(pr signoff.PullRequest, format string, args ...interface{}) {
	c.logger.LogWithLabels(gcp.SeverityInfo, fmt.Sprintf(format, args...), c.labels(pr))
}

// logWarning logs at WARNING level with the pass labels
func (c *Controller) logWarning(pr signoff.PullRequest, format string, args ...interface{}) {
	c.logger.LogWithLabels(gcp.SeverityWarning, fmt.Sprintf(format, args...), c.labels(pr))
}

// logError logs at ERROR level with the pass labels
func (c *Controller) logError(pr signoff.PullRequest, format string, args ...interface{}) {
	c.logger.LogWithLabels(gcp.SeverityError, fmt.Sprintf(format, args...), c.labels(pr))
}

// logDecision records the per-label actions as labels so they can be
// filtered in Cloud Logging.
func (c *Controller) logDecision(pr signoff.PullRequest, result signoff.DecisionResult) {
	labels := c.labels(pr)
	labels["log_type"] = "decision"
	labels["reason"] = string(result.Reason)
	for _, label := range signoff.ManagedLabels {
		labels["action_"+string(label)] = string(result.LabelActions[label])
	}

	severity := gcp.SeverityInfo
	if result.Reason == signoff.ReasonChecksPending {
		severity = gcp.SeverityWarning
	}

	add, remove := result.Changes()
	c.logger.LogWithLabels(severity,
		fmt.Sprintf("decision %s: add %v, remove %v", result.Reason, add, remove), labels)
}
