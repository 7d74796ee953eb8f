// Package render turns svcdeck's data into terminal text: prefixed service
// output, snapshot trees, change lines and log entries.
//
// Colour comes from lipgloss and is only produced by an enabled [Styles];
// [ColorEnabled] decides that from the configured mode and whether the
// destination is a terminal.
package render
