// Package version computes content-addressed module versions.
//
// A module version is "v-" followed by the first 10 hex characters of a
// sha256 digest over the module's configuration, its source tree and the
// versions of every transitive build dependency ordered by module name.
// Equal inputs always yield the same version string.
package version
