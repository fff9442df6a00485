// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the command lifecycle (build, deploy,
// test, run, graph), decoupled from any specific entrypoint like a CLI.
package app
