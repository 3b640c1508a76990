package policy

import "fmt"

// QCCandidate is what QC readiness looks at on a task.
type QCCandidate struct {
	Status         string
	Progress       int
	BlockingIssues int
}

// QCReadiness holds when the task is IN_PROGRESS or READY, fully progressed and unblocked.
// Every condition is evaluated so a failure lists all reasons.
var QCReadiness = And[QCCandidate](
	Predicate("task status must be IN_PROGRESS or READY", func(c QCCandidate) bool {
		return c.Status == "IN_PROGRESS" || c.Status == "READY"
	}),
	progressComplete{},
	noBlockingIssues{},
)

type progressComplete struct{}

func (progressComplete) IsSatisfiedBy(c QCCandidate) bool { return c.Progress == 100 }

func (s progressComplete) WhyNotSatisfied(c QCCandidate) []string {
	if s.IsSatisfiedBy(c) {
		return nil
	}
	return []string{fmt.Sprintf("progress must be 100, got %d", c.Progress)}
}

type noBlockingIssues struct{}

func (noBlockingIssues) IsSatisfiedBy(c QCCandidate) bool { return c.BlockingIssues == 0 }

func (s noBlockingIssues) WhyNotSatisfied(c QCCandidate) []string {
	if s.IsSatisfiedBy(c) {
		return nil
	}
	return []string{fmt.Sprintf("%d blocking issue(s) still open", c.BlockingIssues)}
}

// AssertReadyForQC wraps QCReadiness as a hard gate.
func AssertReadyForQC(c QCCandidate) error {
	return violation("qc readiness", QCReadiness.WhyNotSatisfied(c))
}
