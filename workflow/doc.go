// Package workflow defines the static description of a task DAG submitted to
// the orchestrator: task specs with required capabilities, priorities and
// dependency sets, structural validation (cycles, duplicate or unknown ids)
// and a YAML loader for declarative workflow files.
package workflow
