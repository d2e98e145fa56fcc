// Package redact transforms run payloads before they leave the process.
// Three optional stages exist: a function-level processor, a client-level
// anonymizer, and client-level hide flags. They do not compose; the first
// configured stage in that order is the one applied, so a more specific
// transform always overrides a broader one.
package redact

import (
	"regexp"
)

// DefaultMaxDepth bounds recursion into nested payloads. Values nested
// deeper than this are passed through untouched rather than walked, keeping
// anonymization cost proportional to sane payload shapes.
const DefaultMaxDepth = 10

// Anonymizer rewrites a serialized payload value. Implementations must
// return a new value and leave the input untouched; payloads are shared
// with caller code that may still read them.
type Anonymizer interface {
	Anonymize(value any) any
}

// AnonymizerFunc adapts a function to the Anonymizer interface.
type AnonymizerFunc func(value any) any

// Anonymize implements the Anonymizer interface.
func (f AnonymizerFunc) Anonymize(value any) any { return f(value) }

// Processor is a function-level payload transform attached to a single
// operation. When present it takes precedence over every client-level
// redaction setting.
type Processor func(payload map[string]any) map[string]any

// Rule pairs a pattern with its replacement for rule-based anonymization.
type Rule struct {
	// Pattern matches sensitive substrings inside string values.
	Pattern *regexp.Regexp

	// Replacement substitutes matched spans. Capture group references are
	// supported via the usual $1 syntax.
	Replacement string
}

// RuleAnonymizer applies regex rules to every string found in a payload,
// walking nested maps and slices to a bounded depth.
type RuleAnonymizer struct {
	rules    []Rule
	maxDepth int
}

// NewRuleAnonymizer creates a rule-based anonymizer with the default depth
// bound.
func NewRuleAnonymizer(rules ...Rule) *RuleAnonymizer {
	return &RuleAnonymizer{rules: rules, maxDepth: DefaultMaxDepth}
}

// WithMaxDepth returns a copy of the anonymizer with a different recursion
// bound. Non-positive depths fall back to the default.
func (a *RuleAnonymizer) WithMaxDepth(depth int) *RuleAnonymizer {
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	return &RuleAnonymizer{rules: a.rules, maxDepth: depth}
}

// Anonymize rewrites every string in the value according to the configured
// rules. Maps and slices are rebuilt so the input is never mutated; values
// below the depth bound are returned as-is.
func (a *RuleAnonymizer) Anonymize(value any) any {
	return a.walk(value, 0)
}

func (a *RuleAnonymizer) walk(value any, depth int) any {
	if depth >= a.maxDepth {
		return value
	}

	switch v := value.(type) {
	case string:
		return a.applyRules(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = a.walk(elem, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = a.walk(elem, depth+1)
		}
		return out
	default:
		return value
	}
}

func (a *RuleAnonymizer) applyRules(s string) string {
	for _, rule := range a.rules {
		if rule.Pattern == nil {
			continue
		}
		s = rule.Pattern.ReplaceAllString(s, rule.Replacement)
	}
	return s
}

// Pipeline selects and applies the effective payload transform. Exactly one
// stage runs per payload:
//
//  1. the function-level Processor, when set;
//  2. otherwise the client-level Anonymizer, when set;
//  3. otherwise Hide, which replaces the payload with an empty object;
//  4. otherwise the payload passes through unchanged.
type Pipeline struct {
	// Processor is the function-level transform for this operation.
	Processor Processor

	// Anonymizer is the client-level anonymizer.
	Anonymizer Anonymizer

	// Hide drops the payload entirely, persisting an empty object in its
	// place.
	Hide bool
}

// Active reports whether any stage is configured.
func (p Pipeline) Active() bool {
	return p.Processor != nil || p.Anonymizer != nil || p.Hide
}

// Apply runs the selected stage over the payload. A nil payload stays nil
// unless hiding is the selected stage, which always yields an empty object
// so readers can distinguish "hidden" from "never captured".
func (p Pipeline) Apply(payload map[string]any) map[string]any {
	switch {
	case p.Processor != nil:
		return p.Processor(payload)

	case p.Anonymizer != nil:
		if payload == nil {
			return nil
		}
		rewritten := p.Anonymizer.Anonymize(payload)
		if m, ok := rewritten.(map[string]any); ok {
			return m
		}
		// An anonymizer that changes the top-level shape gets wrapped so
		// the payload stays an object on the wire.
		return map[string]any{"value": rewritten}

	case p.Hide:
		return map[string]any{}

	default:
		return payload
	}
}
