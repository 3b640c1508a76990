package policy

import "fmt"

// Transition is the verdict on a status change. Rejections are values, not errors.
type Transition struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Transitions is one bounded context's allow-list of status arcs.
type Transitions[S ~string] map[S][]S

// Validate checks from -> to against the allow-list.
func (t Transitions[S]) Validate(from, to S) Transition {
	if from == to {
		return Transition{Valid: false, Reason: "No change"}
	}
	for _, allowed := range t[from] {
		if allowed == to {
			return Transition{Valid: true}
		}
	}
	return Transition{Valid: false, Reason: fmt.Sprintf("Cannot transition from %s to %s", from, to)}
}

// Assert turns a rejected transition into a Violation for callers that gate a mutation on it.
func (t Transitions[S]) Assert(subject string, from, to S) error {
	verdict := t.Validate(from, to)
	if verdict.Valid {
		return nil
	}
	return violation(subject, []string{verdict.Reason})
}
