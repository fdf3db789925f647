// Package access is the visibility and permission core of the platform.
//
// Every read and write funnels through it: ScopeFor narrows collection
// queries to what an identity may see, Evaluator rules on single-record
// actions, the field policy redacts outbound records and narrows inbound
// change sets, and Guard owns the approval state machine. Decisions carry
// an internal reason for logging even when the caller is shown a uniform
// not-found outcome.
package access
