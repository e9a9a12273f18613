// Package transition drives cancellable, stepped interpolations between two
// values. Each logical output channel (hardware brightness, overlay opacity)
// has at most one transition in flight; starting a new one supersedes the old
// one, and the superseded run never applies a value after its successor has
// started applying.
//
// Runs step at a fixed cadence, skip steps whose rounded value did not
// change, and always finish with one exact apply of the target. A failing
// apply is logged and stepping continues.
package transition
