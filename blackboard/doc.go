// Package blackboard implements the shared key/value store agents use for
// bulk data exchange. Every entry carries an owning agent id, a tag set and
// a version that increases on each write, so readers can detect staleness.
//
// The blackboard has no notification mechanism. Consumers poll via Read or
// ReadMany; all coordination-relevant signaling travels over the bus package.
package blackboard
