// Package retry re-runs an operation with exponential backoff.
//
// The REST client wraps idempotent appliance calls in [Do] so that dropped
// connections and 5xx answers do not fail a test outright. Errors wrapped
// with [Fatal] stop the loop at once.
package retry
