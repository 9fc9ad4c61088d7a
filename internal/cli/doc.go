// Package cli defines the Cobra command tree for the swinstall CLI. Each file
// registers one top-level command with the root command. Commands build the
// catalog cache, search index and dispatcher from the loaded configuration
// and only handle flag parsing, output formatting and signal handling.
package cli
