// Package output persists workflow results. An ArtifactStore holds the raw
// exported bytes; the Exporter walks the blackboard for entries tagged as
// output, serializes them and saves one artifact per entry.
package output
