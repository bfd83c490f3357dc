// Package runner launches external tools and streams their combined output.
//
// A Process exposes stdout and stderr as one ordered sequence of lines while
// the tool is still running, then reports a terminal Outcome that separates a
// tool that could not be launched from one that ran and exited nonzero.
// Carriage returns split lines too, so progress bars that redraw in place
// surface as individual lines. The runner never interprets output content.
//
// Every Process must be finished with Wait or Close; both reap the child.
package runner
