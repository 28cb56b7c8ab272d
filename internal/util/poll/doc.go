// Package poll repeatedly evaluates a check until it succeeds, a timeout
// elapses, or the check reports an error.
//
// [Until] always evaluates the check once before looking at the clock, so a
// timeout shorter than the delay still yields one attempt. Errors returned by
// the check abort the poll immediately and are returned unchanged; only an
// exhausted timeout produces a [*TimeoutError].
//
// What counts as success is an explicit policy ([Truthy], [NonNil], [Always])
// so that a legitimate zero value is not confused with "not ready yet".
package poll
