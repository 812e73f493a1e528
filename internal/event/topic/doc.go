// Package topic provides hierarchical topics and wildcard matching for the
// event bus.
//
// Topics use dot notation:
//
//	marks.navigate
//	marks.position.updated
//	host.buffer.leave
//
// Patterns may use "*" for exactly one segment and "**" for zero or more:
//
//	marks.*     matches marks.navigate, not marks.position.updated
//	marks.**    matches every marks topic
//	**.leave    matches host.buffer.leave
package topic
