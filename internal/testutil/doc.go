// Package testutil contains fluent helpers shared by the test suites:
// builders for workflow definitions and a stub agent with a settable state.
package testutil
