// Package testutil contains helpers shared by the stage and engine tests.
// Fixtures are the scenario mocks wrapped with test assertions. Not intended
// for production usage.
package testutil
