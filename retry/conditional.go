package retry

import (
	"encoding/json"
	"net/url"
)

// Params is the slice of a request the activation predicates inspect.
type Params struct {
	Query url.Values
	Body  []byte
}

// Activation decides whether a request carries the precondition that makes
// retrying a normally-unsafe operation safe.
type Activation func(Params) bool

// ConditionalPolicy applies its policy only when the activation predicate
// holds; otherwise the operation runs with no retry at all.
type ConditionalPolicy struct {
	Policy     *Policy
	Activation Activation
}

// Resolve returns the wrapped policy when the precondition is present,
// nil (meaning "no retry") when it is absent.
func (c *ConditionalPolicy) Resolve(p Params) *Policy {
	if c == nil || c.Activation == nil || !c.Activation(p) {
		return nil
	}
	return c.Policy
}

// GenerationSpecified reports whether the request pins an object generation,
// either directly or via an if-generation-match precondition.
func GenerationSpecified(p Params) bool {
	return p.Query.Get("generation") != "" || p.Query.Get("ifGenerationMatch") != ""
}

// MetagenerationSpecified reports whether an if-metageneration-match
// precondition is present.
func MetagenerationSpecified(p Params) bool {
	return p.Query.Get("ifMetagenerationMatch") != ""
}

// EtagInBody reports whether the JSON request body carries an etag, which
// makes the server reject a duplicate application of the update.
func EtagInBody(p Params) bool {
	var body struct {
		Etag string `json:"etag"`
	}
	if err := json.Unmarshal(p.Body, &body); err != nil {
		return false
	}
	return body.Etag != ""
}

// Package-level conditional defaults, one per precondition kind.
var (
	DefaultIfGenerationSpecified     = &ConditionalPolicy{Policy: DefaultPolicy, Activation: GenerationSpecified}
	DefaultIfMetagenerationSpecified = &ConditionalPolicy{Policy: DefaultPolicy, Activation: MetagenerationSpecified}
	DefaultIfEtagInBody              = &ConditionalPolicy{Policy: DefaultPolicy, Activation: EtagInBody}
)

// Directive is the resolved-once retry instruction for one operation:
// no retry, a plain policy, or a conditional policy.
type Directive struct {
	policy *Policy
	cond   *ConditionalPolicy
}

// NoRetry is a directive that always resolves to one attempt.
func NoRetry() Directive { return Directive{} }

// Plain is a directive that always applies the given policy.
func Plain(p *Policy) Directive { return Directive{policy: p} }

// Conditional is a directive that applies the wrapped policy only when its
// activation predicate holds for the request.
func Conditional(c *ConditionalPolicy) Directive { return Directive{cond: c} }

// Resolve collapses the directive into a concrete policy for one request.
// nil means execute exactly one attempt.
func (d Directive) Resolve(p Params) *Policy {
	if d.cond != nil {
		return d.cond.Resolve(p)
	}
	return d.policy
}
