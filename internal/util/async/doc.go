// Package async runs independent appliance calls concurrently.
//
// [RunParallel] starts every task, waits for all of them and combines their
// errors. Workflows use it to reload many resources in one poll attempt.
package async
