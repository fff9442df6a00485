// Package yamlconfig loads project configuration from garden.yml files.
//
// Each file holds one or more YAML documents separated by "---". A document
// declares either the project (kind: Project) or a module (kind: Module).
// Build dependencies accept the short form, a bare module name, as well as
// the long form with copy specs.
package yamlconfig
