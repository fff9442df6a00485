// Package config defines the format-agnostic project model: modules, their
// build dependencies and their service, task and test sub-configurations.
//
// Concrete loaders (HCL, YAML) live in separate packages and translate their
// file formats into a *Project. Validate normalizes and checks the model
// before the configuration graph is built from it.
package config
