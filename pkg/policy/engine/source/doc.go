// Package source provides phase policy sources for the policy engine.
//
// A source is responsible for loading the policy document and watching it
// for changes. This package provides file-based and in-memory
// implementations.
//
// # File Source
//
// The file source reads a YAML or JSON policy document from disk and watches
// it for changes using fsnotify:
//
//	src := source.NewFileSource("examples/mission_phase_response_policy.yaml", logger)
//	eng, err := engine.New(machine, src, logger)
//
// The engine subscribes to the source's Watch channel and reloads the policy
// table whenever the file changes. A reload that fails validation leaves the
// previous table in effect.
//
// # In-Memory Source
//
// The in-memory source serves a fixed document. NewDefaultSource serves the
// built-in phase policies, which is the fallback when no policy file is
// configured:
//
//	eng, err := engine.New(machine, source.NewDefaultSource(), logger)
package source
