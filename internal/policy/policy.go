// Package policy holds the stateless business rules that gate aggregate transitions.
// Nothing here performs I/O; every rule is a pure function of its arguments.
package policy

import (
	"fmt"
	"strings"
)

// Violation is a rejected policy with every reason that applied.
type Violation struct {
	Policy  string
	Reasons []string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Policy, strings.Join(v.Reasons, "; "))
}

func violation(policy string, reasons []string) error {
	if len(reasons) == 0 {
		return nil
	}
	return &Violation{Policy: policy, Reasons: reasons}
}

// Specification is a declarative predicate that can explain a failure.
type Specification[T any] interface {
	IsSatisfiedBy(candidate T) bool
	WhyNotSatisfied(candidate T) []string
}

// And is satisfied when every spec is; reasons from all failing specs are reported.
func And[T any](specs ...Specification[T]) Specification[T] {
	return allOf[T](specs)
}

// Or is satisfied when any spec is; when none is, all reasons are reported.
func Or[T any](specs ...Specification[T]) Specification[T] {
	return anyOf[T](specs)
}

// Not inverts spec; reason describes the failure of the negation.
func Not[T any](spec Specification[T], reason string) Specification[T] {
	return notSpec[T]{spec: spec, reason: reason}
}

type allOf[T any] []Specification[T]

func (a allOf[T]) IsSatisfiedBy(c T) bool { return len(a.WhyNotSatisfied(c)) == 0 }

func (a allOf[T]) WhyNotSatisfied(c T) []string {
	var reasons []string
	for _, s := range a {
		reasons = append(reasons, s.WhyNotSatisfied(c)...)
	}
	return reasons
}

type anyOf[T any] []Specification[T]

func (o anyOf[T]) IsSatisfiedBy(c T) bool {
	for _, s := range o {
		if s.IsSatisfiedBy(c) {
			return true
		}
	}
	return false
}

func (o anyOf[T]) WhyNotSatisfied(c T) []string {
	if o.IsSatisfiedBy(c) {
		return nil
	}
	var reasons []string
	for _, s := range o {
		reasons = append(reasons, s.WhyNotSatisfied(c)...)
	}
	return reasons
}

type notSpec[T any] struct {
	spec   Specification[T]
	reason string
}

func (n notSpec[T]) IsSatisfiedBy(c T) bool { return !n.spec.IsSatisfiedBy(c) }

func (n notSpec[T]) WhyNotSatisfied(c T) []string {
	if n.IsSatisfiedBy(c) {
		return nil
	}
	return []string{n.reason}
}

// Predicate adapts a plain check into a Specification.
func Predicate[T any](reason string, ok func(T) bool) Specification[T] {
	return predicate[T]{reason: reason, ok: ok}
}

type predicate[T any] struct {
	reason string
	ok     func(T) bool
}

func (p predicate[T]) IsSatisfiedBy(c T) bool { return p.ok(c) }

func (p predicate[T]) WhyNotSatisfied(c T) []string {
	if p.ok(c) {
		return nil
	}
	return []string{p.reason}
}
