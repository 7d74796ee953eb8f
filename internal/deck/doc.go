// Package deck assembles svcdeck's components for one project from the
// user configuration.
//
// A Deck owns an event bus, an output broadcaster, a path resolver, a file
// manifest provider and the process supervisor, all sharing one logger.
// The CLI commands build a Deck and drive its supervisor; the change
// detector is created on demand with NewDetector because only the run
// command needs it.
package deck
