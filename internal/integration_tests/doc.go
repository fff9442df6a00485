// Package integration_tests holds end-to-end tests that run the full
// application against temporary projects. Each subdirectory groups tests
// by the behavior they cover.
package integration_tests
