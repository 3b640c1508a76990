package policy

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/ident"
)

func TestTaskNamingBounds(t *testing.T) {
	cases := []struct {
		name  string
		title string
		ok    bool
	}{
		{"too short", "ab", false},
		{"minimum", "abc", true},
		{"trimmed to short", "  ab  ", false},
		{"maximum", strings.Repeat("x", 200), true},
		{"too long", strings.Repeat("x", 201), false},
		{"multibyte counted as runes", strings.Repeat("工", 200), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, TaskNaming.IsSatisfiedBy(tc.title))
		})
	}
}

func TestRoleNamingRejectsReservedExactMatch(t *testing.T) {
	assert.False(t, RoleNaming.IsSatisfiedBy("Admin"))
	assert.False(t, RoleNaming.IsSatisfiedBy(" ROOT "))
	assert.True(t, RoleNaming.IsSatisfiedBy("Site Admin"))
	assert.False(t, RoleNaming.IsSatisfiedBy(strings.Repeat("r", 31)))

	err := RoleNaming.AssertIsValid("owner")
	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "role name", v.Policy)
	assert.Len(t, v.Reasons, 1)
}

func TestTemplateNamingRejectsForbiddenSubstring(t *testing.T) {
	assert.True(t, TemplateNaming.IsSatisfiedBy("Daily inspection"))
	assert.False(t, TemplateNaming.IsSatisfiedBy("Untitled checklist"))
	assert.False(t, TemplateNaming.IsSatisfiedBy("old - DO NOT USE"))

	err := TemplateNaming.AssertIsValid("ab deprecated")
	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Len(t, v.Reasons, 1)

	err = TemplateNaming.AssertIsValid("x")
	require.True(t, errors.As(err, &v))
	assert.Len(t, v.Reasons, 1)
	require.NoError(t, TemplateNaming.AssertIsValid("Handover"))
}

func chain(n int) []TaskNode {
	nodes := make([]TaskNode, n)
	for i := range nodes {
		nodes[i].ID = ident.MustCreate[ident.Task]("t" + string(rune('a'+i)))
		if i > 0 {
			parent := nodes[i-1].ID
			nodes[i].ParentID = &parent
		}
	}
	return nodes
}

func TestCalculateDepth(t *testing.T) {
	nodes := chain(12)
	assert.Equal(t, 0, CalculateDepth(nodes[0], nodes))
	assert.Equal(t, 9, CalculateDepth(nodes[9], nodes))
	assert.Equal(t, 10, CalculateDepth(nodes[10], nodes))

	assert.True(t, DefaultHierarchy.CanAddSubtask(nodes[9], nodes))
	assert.False(t, DefaultHierarchy.CanAddSubtask(nodes[10], nodes))
	assert.NoError(t, DefaultHierarchy.AssertCanAddSubtask(nodes[9], nodes))

	var v *Violation
	require.True(t, errors.As(DefaultHierarchy.AssertCanAddSubtask(nodes[11], nodes), &v))
	assert.Equal(t, "task hierarchy", v.Policy)
}

func TestCalculateDepthStopsAtDanglingParent(t *testing.T) {
	nodes := chain(5)
	// drop nodes[1]: nodes[4] -> 3 -> 2 -> (missing 1)
	partial := []TaskNode{nodes[0], nodes[2], nodes[3], nodes[4]}
	assert.Equal(t, 2, CalculateDepth(nodes[4], partial))

	orphanParent := ident.MustCreate[ident.Task]("ghost")
	orphan := TaskNode{ID: ident.MustCreate[ident.Task]("orphan"), ParentID: &orphanParent}
	assert.Equal(t, 0, CalculateDepth(orphan, nil))
}

func TestCalculateDepthStopsOnCycle(t *testing.T) {
	a := ident.MustCreate[ident.Task]("a")
	b := ident.MustCreate[ident.Task]("b")
	nodes := []TaskNode{{ID: a, ParentID: &b}, {ID: b, ParentID: &a}}
	assert.Equal(t, 1, CalculateDepth(nodes[0], nodes))
}

func TestWorkHourBoundary(t *testing.T) {
	u1 := ident.MustCreate[ident.User]("u1")
	u2 := ident.MustCreate[ident.User]("u2")
	var p WorkHour

	assert.False(t, p.IsSatisfiedBy(0.6, u1, "2024-01-01", []WorkEntry{{UserID: u1, Date: "2024-01-01", Headcount: 0.5}}))
	assert.True(t, p.IsSatisfiedBy(0.6, u1, "2024-01-01", []WorkEntry{{UserID: u1, Date: "2024-01-01", Headcount: 0.4}}))

	others := []WorkEntry{
		{UserID: u2, Date: "2024-01-01", Headcount: 1},
		{UserID: u1, Date: "2024-01-02", Headcount: 1},
		{UserID: u1, Date: "2024-1-1", Headcount: 1},
	}
	assert.True(t, p.IsSatisfiedBy(1, u1, "2024-01-01", others))

	err := p.AssertIsValid(0.6, u1, "2024-01-01", []WorkEntry{{UserID: u1, Date: "2024-01-01", Headcount: 0.5}})
	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "work hour", v.Policy)
}

func TestHistoricalEntry(t *testing.T) {
	now := time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)
	day := func(s string) time.Time {
		d, err := time.Parse(DateLayout, s)
		require.NoError(t, err)
		return d
	}
	p := DefaultHistoricalEntry
	assert.True(t, p.IsSatisfiedBy(day("2024-03-31"), now))
	assert.True(t, p.IsSatisfiedBy(day("2024-03-01"), now))
	assert.False(t, p.IsSatisfiedBy(day("2024-02-29"), now))
	assert.False(t, p.IsSatisfiedBy(day("2024-04-01"), now))

	assert.Error(t, p.AssertIsValid(day("2024-04-01"), now))
	assert.Error(t, p.AssertIsValid(day("2024-01-01"), now))
	assert.NoError(t, p.AssertIsValid(day("2024-03-15"), now))
}

func TestTaskCompletionIsExactMatch(t *testing.T) {
	var p TaskCompletion
	assert.False(t, p.IsSatisfiedBy("Completed"))
	assert.True(t, p.IsSatisfiedBy("completed"))
	assert.True(t, p.IsSatisfiedBy("COMPLETED"))
	assert.True(t, p.IsSatisfiedBy("In Progress"))
	assert.Error(t, p.AssertIsValid("Completed"))
}

func TestQCReadinessListsEveryReason(t *testing.T) {
	assert.True(t, QCReadiness.IsSatisfiedBy(QCCandidate{Status: "READY", Progress: 100}))
	assert.True(t, QCReadiness.IsSatisfiedBy(QCCandidate{Status: "IN_PROGRESS", Progress: 100}))

	reasons := QCReadiness.WhyNotSatisfied(QCCandidate{Status: "TODO", Progress: 40, BlockingIssues: 2})
	assert.Len(t, reasons, 3)
	assert.False(t, QCReadiness.IsSatisfiedBy(QCCandidate{Status: "READY", Progress: 99}))

	var v *Violation
	require.True(t, errors.As(AssertReadyForQC(QCCandidate{Status: "READY", Progress: 100, BlockingIssues: 1}), &v))
	assert.Equal(t, []string{"1 blocking issue(s) still open"}, v.Reasons)
}

func TestSpecificationCombinators(t *testing.T) {
	even := Predicate("must be even", func(n int) bool { return n%2 == 0 })
	small := Predicate("must be small", func(n int) bool { return n < 10 })

	assert.True(t, Or[int](even, small).IsSatisfiedBy(3))
	assert.Equal(t, []string{"must be even", "must be small"}, Or[int](even, small).WhyNotSatisfied(11))
	assert.Nil(t, Or[int](even, small).WhyNotSatisfied(12))

	odd := Not(even, "must be odd")
	assert.True(t, odd.IsSatisfiedBy(3))
	assert.Equal(t, []string{"must be odd"}, odd.WhyNotSatisfied(4))
}

type state string

var testArcs = Transitions[state]{
	"PENDING":  {"APPROVED", "REJECTED"},
	"REJECTED": {"PENDING"},
}

func TestTransitions(t *testing.T) {
	assert.Equal(t, Transition{Valid: false, Reason: "No change"}, testArcs.Validate("PENDING", "PENDING"))
	assert.Equal(t, Transition{Valid: true}, testArcs.Validate("REJECTED", "PENDING"))
	assert.Equal(t, Transition{Valid: false, Reason: "Cannot transition from APPROVED to PENDING"}, testArcs.Validate("APPROVED", "PENDING"))

	require.NoError(t, testArcs.Assert("acceptance status", "PENDING", "APPROVED"))
	var v *Violation
	require.True(t, errors.As(testArcs.Assert("acceptance status", "APPROVED", "REJECTED"), &v))
	assert.Equal(t, []string{"Cannot transition from APPROVED to REJECTED"}, v.Reasons)
}

func TestSettingsAccumulatesErrors(t *testing.T) {
	var p Settings
	assert.True(t, p.IsSatisfiedBy(SettingsValues{Theme: "dark", Language: "zh-TW"}))
	errs := p.Errors(SettingsValues{Theme: "neon", Language: "klingon"})
	assert.Len(t, errs, 2)

	var v *Violation
	require.True(t, errors.As(p.AssertIsValid(SettingsValues{Theme: "light", Language: "fr"}), &v))
	assert.Len(t, v.Reasons, 1)
	assert.Contains(t, v.Reasons[0], "language")
}
