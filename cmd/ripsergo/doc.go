// Package main hosts the ripsergo CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into calls on the
// internal ripser pipeline: computing diagrams for matrix files, parsing saved
// ripser reports, checking the environment, managing the diagram cache and
// scaffolding configuration. Configuration resolution and logger setup are
// centralized in commandContext so subcommands stay declarative.
package main
